package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sectorwars/combat-engine/pkg/logger"
	"github.com/sectorwars/combat-engine/pkg/simulation"
	"github.com/sectorwars/combat-engine/pkg/utils"

	// Import scenarios to register them
	_ "github.com/sectorwars/combat-engine/cmd/sector-combat/simulation"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a combat scenario",
	Long:  `Run a combat scenario interactively or with specified parameters`,
	RunE:  runScenario,
}

func init() {
	runCmd.Flags().StringP("simulation", "s", "", "scenario name to run")
	runCmd.Flags().StringP("params", "p", "", "parameters file (YAML)")
}

func runScenario(cmd *cobra.Command, _ []string) error {
	simName, err := selectScenario(cmd)
	if err != nil {
		return fmt.Errorf("failed to select scenario: %w", err)
	}

	sim, err := simulation.DefaultRegistry.Get(simName)
	if err != nil {
		return fmt.Errorf("failed to get scenario: %w", err)
	}

	params, err := collectParameters(cmd, simName)
	if err != nil {
		return fmt.Errorf("failed to get parameters: %w", err)
	}

	if err := sim.Configure(params); err != nil {
		return fmt.Errorf("failed to configure scenario: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Warn("\nReceived interrupt signal, stopping scenario...")
		err := sim.Stop()
		if err != nil {
			logger.Errorf("Failed to stop scenario: %v", err)
			return
		}
		cancel()
	}()

	logger.LogSection(fmt.Sprintf("Starting %s", sim.Name()))
	if err := sim.Run(ctx); err != nil {
		return fmt.Errorf("scenario failed: %w", err)
	}

	logger.Success("Scenario completed successfully")
	return nil
}

// collectParameters reads the parameters file when given, otherwise
// prompts using the scenario's declared parameter schema
func collectParameters(cmd *cobra.Command, simName string) (map[string]interface{}, error) {
	paramsFile, _ := cmd.Flags().GetString("params")
	if paramsFile != "" {
		data, err := os.ReadFile(paramsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read parameters file: %w", err)
		}
		params := make(map[string]interface{})
		if err := yaml.Unmarshal(data, &params); err != nil {
			return nil, fmt.Errorf("failed to parse parameters file: %w", err)
		}
		return params, nil
	}

	simInfos, err := utils.DiscoverSimulations()
	if err != nil {
		return nil, fmt.Errorf("failed to discover scenarios: %w", err)
	}

	var simConfig *simulation.SimulationConfig
	for _, info := range simInfos {
		if info.Config.Name == simName {
			simConfig = &info.Config
			break
		}
	}

	if simConfig == nil {
		return nil, fmt.Errorf("scenario configuration not found for %s", simName)
	}

	return utils.PromptForParameters(simConfig.Parameters)
}

func selectScenario(cmd *cobra.Command) (string, error) {
	// Check if scenario is specified via flag
	simName, _ := cmd.Flags().GetString("simulation")
	if simName != "" {
		return simName, nil
	}

	// Discover available scenarios
	simInfos, err := utils.DiscoverSimulations()
	if err != nil {
		return "", err
	}

	if len(simInfos) == 0 {
		return "", fmt.Errorf("no scenarios found")
	}

	// Build options for selection
	options := make([]string, len(simInfos))
	descriptions := make(map[string]string)

	for i, info := range simInfos {
		options[i] = info.Config.Name
		descriptions[info.Config.Name] = info.Config.Description
	}

	// Interactive selection
	var selected string
	prompt := &survey.Select{
		Message: "Select scenario:",
		Options: options,
		Description: func(value string, index int) string {
			return descriptions[value]
		},
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}

	return selected, nil
}
