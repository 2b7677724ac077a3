// Package cli implements the gatectl admin command line tool.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		host   string
		token  string
		output string
	)

	rootCmd := &cobra.Command{
		Use:           "gatectl",
		Short:         "SQL gateway admin CLI",
		Long:          "Command-line interface for administering the SQL query gateway: pending approvals, the whitelist, and the audit log.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Precedence: flag > env > default.
			if !cmd.Flags().Changed("host") {
				if v := os.Getenv("SQLGATE_HOST"); v != "" {
					host = v
				}
			}
			if !cmd.Flags().Changed("token") {
				if v := os.Getenv("SQLGATE_TOKEN"); v != "" {
					token = v
				}
			}
			if err := validateOutputFormat(output); err != nil {
				return err
			}
			cmd.SetContext(withClient(cmd.Context(), newClient(host, token)))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&host, "host", "http://localhost:8080", "gateway base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer token (defaults to SQLGATE_TOKEN)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")

	rootCmd.AddCommand(newPendingCmd())
	rootCmd.AddCommand(newWhitelistCmd())
	rootCmd.AddCommand(newAuditCmd())
	rootCmd.AddCommand(newServersCmd())
	rootCmd.AddCommand(newAuthCmd())
	return rootCmd
}

func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	return v
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}
