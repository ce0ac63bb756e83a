package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dronecharge/app"
	"github.com/kilianp07/dronecharge/config"
	"github.com/kilianp07/dronecharge/infra/logger"
)

var (
	cfgPath  string
	scenario string
)

var rootCmd = &cobra.Command{
	Use:           "dronecharge",
	Short:         "Drone EV charging dispatch simulator",
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation and print the summary",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVarP(&scenario, "scenario", "s", "", "scenario file, overrides simulation.scenario")
	runCmd.Flags().Bool("brief", false, "print a single tab separated summary line")
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
	rootCmd.AddCommand(runCmd)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if scenario != "" {
		cfg.Simulation.Scenario = scenario
	}
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if brief, _ := cmd.Flags().GetBool("brief"); brief {
		cfg.Report.Brief = true
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	rs, err := svc.Run(ctx)
	if rerr := svc.Report(cmd.OutOrStdout(), rs); rerr != nil && err == nil {
		err = rerr
	}
	return err
}
