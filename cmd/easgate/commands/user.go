package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/veilmail/easgate/internal/cli/output"
	"github.com/veilmail/easgate/internal/cli/prompt"
	"github.com/veilmail/easgate/internal/cli/timeutil"
	"github.com/veilmail/easgate/pkg/auth"
	"github.com/veilmail/easgate/pkg/state/models"
)

var (
	userEmail       string
	userDisplayName string
	userDelForce    bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
	Long: `Manage the accounts devices authenticate with.

Examples:
  easgate user add alice --email alice@example.com
  easgate user passwd alice
  easgate user list
  easgate user delete alice`,
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add a new user (prompts for password)",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

var userDeleteCmd = &cobra.Command{
	Use:     "delete <username>",
	Aliases: []string{"remove", "del"},
	Short:   "Delete a user",
	Args:    cobra.ExactArgs(1),
	RunE:    runUserDelete,
}

var userListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all users",
	Args:    cobra.NoArgs,
	RunE:    runUserList,
}

var userPasswdCmd = &cobra.Command{
	Use:     "passwd <username>",
	Aliases: []string{"password"},
	Short:   "Change a user's password",
	Args:    cobra.ExactArgs(1),
	RunE:    runUserPasswd,
}

func init() {
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "Email address reported through Settings")
	userAddCmd.Flags().StringVar(&userDisplayName, "display-name", "", "Display name shown in GAL search results")
	userDeleteCmd.Flags().BoolVar(&userDelForce, "force", false, "Skip confirmation prompt")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userDeleteCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userPasswdCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	username := args[0]

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	password, err := prompt.PasswordWithConfirmation("Password", "Confirm password", auth.MinPasswordLength)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = st.CreateUser(cmd.Context(), &models.User{
		Username:     username,
		PasswordHash: hash,
		Email:        userEmail,
		DisplayName:  userDisplayName,
		Enabled:      true,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Printf("User %q created\n", username)
	return nil
}

func runUserDelete(cmd *cobra.Command, args []string) error {
	username := args[0]

	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete user %q and all its sync state", username), userDelForce)
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

	if err := st.DeleteUser(cmd.Context(), username); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	fmt.Printf("User %q deleted\n", username)
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	users, err := st.ListUsers(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("No users configured")
		return nil
	}

	table := output.NewTableData("USERNAME", "EMAIL", "ENABLED", "CREATED", "LAST LOGIN")
	for _, u := range users {
		enabled := "yes"
		if !u.Enabled {
			enabled = "no"
		}
		email := u.Email
		if email == "" {
			email = "-"
		}
		lastLogin := "-"
		if u.LastLogin != nil {
			lastLogin = timeutil.FormatTime(u.LastLogin.Format(time.RFC3339))
		}
		table.AddRow(u.Username, email, enabled, timeutil.FormatTime(u.CreatedAt.Format(time.RFC3339)), lastLogin)
	}

	return output.PrintTable(os.Stdout, table)
}

func runUserPasswd(cmd *cobra.Command, args []string) error {
	username := args[0]

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	password, err := prompt.PasswordWithConfirmation("New password", "Confirm password", auth.MinPasswordLength)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := st.SetPassword(cmd.Context(), username, hash); err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}

	fmt.Printf("Password changed for user %q\n", username)
	return nil
}
