package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newServersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "servers",
		Short: "List registered backend servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp struct {
				Data []struct {
					Alias        string   `json:"alias"`
					Host         string   `json:"host"`
					Port         int      `json:"port"`
					Database     string   `json:"database"`
					Engine       string   `json:"engine"`
					AllowedRoles []string `json:"allowed_roles"`
					IsActive     bool     `json:"is_active"`
					AutoApprove  bool     `json:"auto_approve"`
				} `json:"data"`
			}
			if err := clientFrom(cmd.Context()).get(cmd.Context(), "/servers", nil, &resp); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, resp.Data)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ALIAS\tENGINE\tADDRESS\tDATABASE\tROLES\tACTIVE\tAUTO-APPROVE")
			for _, s := range resp.Data {
				fmt.Fprintf(w, "%s\t%s\t%s:%d\t%s\t%s\t%t\t%t\n",
					s.Alias, s.Engine, s.Host, s.Port, s.Database,
					strings.Join(s.AllowedRoles, ","), s.IsActive, s.AutoApprove)
			}
			return w.Flush()
		},
	}
}
