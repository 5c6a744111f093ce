package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/citydispatch/infra/logger"
	"github.com/kilianp07/citydispatch/pkg/export"
	"github.com/kilianp07/citydispatch/qa/scenarios"
)

var historyFormat string

var simulateCmd = &cobra.Command{
	Use:   "simulate <scenario.yaml>...",
	Short: "Replay scripted scenarios and report mismatches",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&historyFormat, "history", "", "print the trip history instead of the result (json or csv)")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	log := logger.New("simulate")
	failed := 0
	for _, path := range args {
		sc, err := scenarios.Load(path)
		if err != nil {
			return err
		}
		res, err := scenarios.Run(sc, scenarios.Options{Logger: log})
		if err != nil {
			return err
		}
		if !res.OK() {
			failed++
			for _, f := range res.Failures {
				log.Warnf("%s: %s", res.Name, f)
			}
		}
		if historyFormat != "" {
			if err := export.Write(cmd.OutOrStdout(), historyFormat, res.History); err != nil {
				return err
			}
			continue
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(args))
	}
	return nil
}
