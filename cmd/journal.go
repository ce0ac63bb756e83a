package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dronecharge/core/dispatch/logging"
)

var journalQuery logging.LogQuery

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the charge and drone journal",
	RunE:  runJournal,
}

func init() {
	f := journalCmd.Flags()
	f.StringVar(&journalQuery.RunID, "run", "", "run id")
	f.StringVar((*string)(&journalQuery.Kind), "kind", string(logging.KindCharge), "charge or drone")
	f.StringVar(&journalQuery.EVID, "ev", "", "EV id")
	f.StringVar(&journalQuery.DroneID, "drone", "", "drone id")
	f.StringVar(&journalQuery.State, "state", "", "state name")
	f.IntVar(&journalQuery.FromStep, "from", 0, "first tick")
	f.IntVar(&journalQuery.ToStep, "to", 0, "last tick, 0 for no bound")
	rootCmd.AddCommand(journalCmd)
}

func runJournal(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Journal.Backend == "none" {
		return fmt.Errorf("journal backend is none")
	}
	store, err := cfg.Journal.Open()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	recs, err := store.Query(cmd.Context(), journalQuery)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
