package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/veilmail/easgate/internal/cli/output"
	"github.com/veilmail/easgate/internal/cli/prompt"
	"github.com/veilmail/easgate/internal/cli/timeutil"
)

var devicesForgetForce bool

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage partnered devices",
	Long: `Inspect and remove device partnerships.

Forgetting a device drops its provisioning state and all per-collection
sync state; the device re-provisions and performs a full resync on its
next connection.

Examples:
  easgate devices list
  easgate devices forget alice Appl8XYZ123`,
}

var devicesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all partnered devices",
	Args:    cobra.NoArgs,
	RunE:    runDevicesList,
}

var devicesForgetCmd = &cobra.Command{
	Use:   "forget <username> <device-id>",
	Short: "Remove a device partnership and its sync state",
	Args:  cobra.ExactArgs(2),
	RunE:  runDevicesForget,
}

func init() {
	devicesForgetCmd.Flags().BoolVar(&devicesForgetForce, "force", false, "Skip confirmation prompt")

	devicesCmd.AddCommand(devicesListCmd)
	devicesCmd.AddCommand(devicesForgetCmd)
}

func runDevicesList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	devices, err := st.ListDevices(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No devices partnered")
		return nil
	}

	table := output.NewTableData("USERNAME", "DEVICE ID", "TYPE", "PROVISIONED", "LAST SEEN")
	for _, d := range devices {
		provisioned := "yes"
		if !d.IsProvisioned {
			provisioned = "no"
		}
		deviceType := d.DeviceType
		if deviceType == "" {
			deviceType = "-"
		}
		table.AddRow(d.Username, d.DeviceID, deviceType, provisioned, timeutil.FormatTime(d.LastSeen.Format(time.RFC3339)))
	}

	return output.PrintTable(os.Stdout, table)
}

func runDevicesForget(cmd *cobra.Command, args []string) error {
	username, deviceID := args[0], args[1]

	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Forget device %q for user %q", deviceID, username), devicesForgetForce)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Aborted")
		return nil
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.ForgetDevice(cmd.Context(), username, deviceID); err != nil {
		return fmt.Errorf("failed to forget device: %w", err)
	}

	fmt.Printf("Device %q forgotten for user %q\n", deviceID, username)
	return nil
}
