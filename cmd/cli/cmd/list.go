package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sectorwars/combat-engine/pkg/utils"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available scenarios",
	Long:  `List all available combat scenarios with their descriptions`,
	RunE:  listScenarios,
}

func listScenarios(cmd *cobra.Command, args []string) error {
	// Discover available scenarios
	simInfos, err := utils.DiscoverSimulations()
	if err != nil {
		return fmt.Errorf("failed to discover scenarios: %w", err)
	}

	if len(simInfos) == 0 {
		fmt.Println("No scenarios found")
		return nil
	}

	// Create tabwriter for formatted output
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tVERSION\tCATEGORY\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "----\t-------\t--------\t-----------")

	for _, info := range simInfos {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			info.Config.Name,
			info.Config.Version,
			info.Config.Category,
			info.Config.Description,
		)
	}

	return w.Flush()
}
