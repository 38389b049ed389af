package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veilmail/easgate/internal/cli/prompt"
	"github.com/veilmail/easgate/pkg/auth"
	"github.com/veilmail/easgate/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a configuration file and admin account",
	Long: `Initialize an easgate configuration file.

Prompts for the admin account credentials and writes a configuration
file with sensible defaults. By default the file is created at
$XDG_CONFIG_HOME/easgate/config.yaml; use --config for a custom path.

The admin account is created in the state database on first server
start, using the credentials stored here.

Examples:
  # Initialize with default location
  easgate init

  # Initialize with custom path
  easgate init --config /etc/easgate/config.yaml

  # Force overwrite existing config
  easgate init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
	}

	cfg := config.GetDefaultConfig()

	username, err := prompt.Input("Admin username", cfg.Admin.Username)
	if err != nil {
		return fmt.Errorf("failed to read admin username: %w", err)
	}

	email, err := prompt.InputOptional("Admin email address")
	if err != nil {
		return fmt.Errorf("failed to read admin email: %w", err)
	}

	password, err := prompt.PasswordWithConfirmation("Admin password", "Confirm password", auth.MinPasswordLength)
	if err != nil {
		return fmt.Errorf("failed to read admin password: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	cfg.Admin.Username = username
	cfg.Admin.Email = email
	cfg.Admin.PasswordHash = hash

	if err := config.SaveConfig(cfg, configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start the server with: easgate start")
	fmt.Printf("  3. Or specify custom config: easgate start --config %s\n", configPath)
	fmt.Println("\nPoint your mail client at:")
	fmt.Printf("  https://<host>:%d/Microsoft-Server-ActiveSync\n", cfg.Server.Port)

	return nil
}
