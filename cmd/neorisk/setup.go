package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neorisk-server/internal/setup"
)

func newSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Integrate the MCP server with desktop clients",
	}

	claude := &cobra.Command{
		Use:   "claude-desktop",
		Short: "Register the MCP server in Claude Desktop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			binary, _ := cmd.Flags().GetString("binary")
			configPath, _ := cmd.Flags().GetString("claude-config")
			riskPath, _ := cmd.Flags().GetString("risk-config")

			written, err := setup.ConfigureClaudeDesktop(setup.Options{
				BinaryPath:     binary,
				RiskConfigPath: riskPath,
				ConfigPath:     configPath,
			})
			if err != nil {
				return fmt.Errorf("failed to configure Claude Desktop: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Registered %q in %s\n", setup.ServerName, written)
			fmt.Fprintln(out, "Restart Claude Desktop to load the new configuration.")
			return nil
		},
	}
	claude.Flags().StringP("binary", "b", "", "Path to the "+setup.BinaryName+" binary (searched on PATH when empty)")
	claude.Flags().String("claude-config", "", "Claude Desktop config file (detected when empty)")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show whether the MCP server is registered",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("claude-config")
			st, err := setup.GetStatus(configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config file: %s\n", st.ConfigPath)
			fmt.Fprintf(out, "Registered: %t\n", st.Configured)
			if st.Configured {
				fmt.Fprintf(out, "Binary: %s (found: %t)\n", st.BinaryPath, st.BinaryExists)
			}
			for _, issue := range st.Issues {
				fmt.Fprintf(out, "  - %s\n", issue)
			}
			return nil
		},
	}
	status.Flags().String("claude-config", "", "Claude Desktop config file (detected when empty)")

	cmd.AddCommand(claude, status)
	return cmd
}
