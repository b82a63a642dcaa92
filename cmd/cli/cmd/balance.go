package cmd

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/sectorwars/combat-engine/cmd/sector-combat/config"
	"github.com/sectorwars/combat-engine/pkg/logger"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Manage combat balance configuration",
	Long:  `Inspect and scaffold the game-balance configuration used by the combat resolution engine`,
}

var balanceShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective balance configuration",
	RunE:  showBalance,
}

var balanceInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default balance configuration to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  initBalance,
}

func init() {
	balanceCmd.AddCommand(balanceShowCmd)
	balanceCmd.AddCommand(balanceInitCmd)

	balanceShowCmd.Flags().StringP("file", "f", "", "balance configuration file (default uses shipped values)")
}

func showBalance(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("file")

	cfg, err := config.LoadConfigOrDefault(path)
	if err != nil {
		return fmt.Errorf("failed to load balance configuration: %w", err)
	}
	config.MergeWithEnvironment(cfg)

	if err := cfg.Validate(); err != nil {
		logger.Warnf("Configuration is invalid: %v", err)
	}

	fmt.Println(cfg.String())
	return nil
}

func initBalance(cmd *cobra.Command, args []string) error {
	path := "balance.yaml"
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil {
		overwrite := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("%s already exists. Overwrite?", path),
		}
		if err := survey.AskOne(prompt, &overwrite); err != nil {
			return err
		}
		if !overwrite {
			return nil
		}
	}

	cfg := config.GetDefaultConfig()
	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("failed to write balance configuration: %w", err)
	}

	logger.Successf("Default balance configuration written to %s", path)
	return nil
}
