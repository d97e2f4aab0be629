package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neorisk-server/internal/riskconfig"
	"github.com/neorisk-server/internal/service"
)

func newValidateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config [path]",
		Short: "Load a risk configuration document and report whether it is consistent",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				var err error
				if path, err = resolveRiskConfigPath(cmd); err != nil {
					return err
				}
			}

			cfg, err := riskconfig.LoadFile(path)
			if err != nil {
				return err
			}

			source := path
			if source == "" {
				source = riskconfig.DefaultSource
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: OK\n", source)
			fmt.Fprintf(out, "version %s, %d parameters, scores %d..%d, %d risk levels\n",
				cfg.Version, len(cfg.Parameters), cfg.MinScore(), cfg.MaxScore(), len(cfg.RiskLevels))
			for _, level := range service.NewRiskClassifier(cfg.RiskLevels).Levels() {
				fmt.Fprintf(out, "  %2d..%-2d %s\n", level.MinScore, level.MaxScore, level.Diagnosis)
			}
			return nil
		},
	}
}
