package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dronecharge/core/hub"
	"github.com/kilianp07/dronecharge/infra/backend/memsim"
)

var hubsCmd = &cobra.Command{
	Use:   "hubs",
	Short: "List the drone hubs of the scenario",
	RunE:  runHubs,
}

func init() {
	rootCmd.AddCommand(hubsCmd)
}

func runHubs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	scn, err := memsim.LoadScenario(cfg.Simulation.Scenario)
	if err != nil {
		return fmt.Errorf("scenario: %w", err)
	}
	sim, err := memsim.New(scn)
	if err != nil {
		return err
	}
	reg, err := hub.NewRegistry(sim, sim, nil)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEDGE\tOFFSET\tX\tY")
	for _, h := range reg.Hubs() {
		fmt.Fprintf(w, "%s\t%s\t%.1f\t%.1f\t%.1f\n", h.ID, h.Edge, h.Offset, h.Pos.X, h.Pos.Y)
	}
	return w.Flush()
}
