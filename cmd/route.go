package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/citydispatch/core/model"
	"github.com/kilianp07/citydispatch/core/routing"
	"github.com/kilianp07/citydispatch/infra/citycsv"
	"github.com/kilianp07/citydispatch/infra/logger"
)

var maxPathNodes int

var routeCmd = &cobra.Command{
	Use:   "route <from> <to>",
	Short: "Print the shortest path between two nodes of the configured city",
	Args:  cobra.ExactArgs(2),
	RunE:  runRoute,
}

func init() {
	routeCmd.Flags().IntVar(&maxPathNodes, "max-nodes", 0, "longest accepted path, 0 uses the configured value")
	rootCmd.AddCommand(routeCmd)
}

func runRoute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	g, _, err := citycsv.NewLoader(logger.New("citycsv")).LoadFiles(cfg.Graph.Locations, cfg.Graph.Paths)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}
	limit := cfg.Dispatch.MaxPathNodes
	if maxPathNodes > 0 {
		limit = maxPathNodes
	}
	p := routing.NewFinder(g, limit).FindShortestPath(args[0], args[1])
	if p.Empty() {
		return fmt.Errorf("%s to %s: %w", args[0], args[1], model.ErrNoPathFound)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}
