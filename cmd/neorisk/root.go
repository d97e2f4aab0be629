package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/neorisk-server/internal/config"
	"github.com/neorisk-server/internal/domain"
	"github.com/neorisk-server/internal/logging"
	"github.com/neorisk-server/internal/riskconfig"
	"github.com/neorisk-server/internal/service"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "neorisk",
		Short:        "Neonatal transport risk assessment",
		Long:         "neorisk scores seven clinical parameters of a newborn, estimates mortality probability and classifies transport risk.",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "Path to config.yaml (defaults to ./config.yaml, ./config/ or /etc/neorisk/)")
	root.PersistentFlags().String("risk-config", "", "Path to the risk configuration document (overrides NEORISK_RISK_CONFIG_PATH)")
	root.PersistentFlags().String("log-level", "warn", "Log level for diagnostics written to stderr")

	root.AddCommand(newAssessCmd())
	root.AddCommand(newChatCmd())
	root.AddCommand(newValidateConfigCmd())
	root.AddCommand(newSetupCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// resolveRiskConfigPath returns the --risk-config flag, then the value from
// config.yaml or the environment. Empty means the embedded table.
func resolveRiskConfigPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("risk-config"); p != "" {
		return p, nil
	}
	configFile, _ := cmd.Flags().GetString("config")
	manager, err := config.NewManagerFromFile(configFile)
	if err != nil {
		return "", err
	}
	return manager.GetConfig().Risk.ConfigPath, nil
}

func newCLILogger(cmd *cobra.Command) (*logrus.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	logger, _, err := logging.NewLogger(domain.LoggingConfig{
		Level:  level,
		Format: "text",
		Output: logging.OutputStderr,
	})
	if err != nil {
		return nil, err
	}
	logger.SetOutput(cmd.ErrOrStderr())
	return logger, nil
}

func loadAssessor(cmd *cobra.Command) (*service.AssessmentService, *logrus.Logger, error) {
	logger, err := newCLILogger(cmd)
	if err != nil {
		return nil, nil, err
	}
	path, err := resolveRiskConfigPath(cmd)
	if err != nil {
		return nil, nil, err
	}
	risk, err := riskconfig.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return service.NewAssessmentService(risk, logger), logger, nil
}
