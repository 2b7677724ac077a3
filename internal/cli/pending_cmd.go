package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

type pendingApproval struct {
	ID            string    `json:"id"`
	Fingerprint   string    `json:"fingerprint"`
	SQL           string    `json:"sql"`
	Submitter     string    `json:"submitter"`
	SubmitterRole string    `json:"submitter_role"`
	TargetServer  string    `json:"target_server"`
	QueryType     string    `json:"query_type"`
	AuditID       string    `json:"audit_id"`
	CreatedAt     time.Time `json:"created_at"`
}

func newPendingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Manage queries awaiting approval",
	}

	cmd.AddCommand(newPendingListCmd())
	cmd.AddCommand(newPendingShowCmd())
	cmd.AddCommand(newPendingApproveCmd())
	cmd.AddCommand(newPendingRejectCmd())
	return cmd
}

func newPendingListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open pending approvals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp struct {
				Data []pendingApproval `json:"data"`
			}
			if err := clientFrom(cmd.Context()).get(cmd.Context(), "/approvals", nil, &resp); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, resp.Data)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSUBMITTER\tROLE\tSERVER\tTYPE\tAGE\tSQL")
			for _, p := range resp.Data {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					p.ID, p.Submitter, p.SubmitterRole, p.TargetServer, p.QueryType,
					time.Since(p.CreatedAt).Truncate(time.Second), truncateSQL(p.SQL, 60))
			}
			return w.Flush()
		},
	}
}

func newPendingShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <approval-id>",
		Short: "Show one pending approval including its full SQL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p pendingApproval
			if err := clientFrom(cmd.Context()).get(cmd.Context(), "/approvals/"+args[0], nil, &p); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, p)
			}
			fmt.Printf("ID:           %s\n", p.ID)
			fmt.Printf("Submitter:    %s (%s)\n", p.Submitter, p.SubmitterRole)
			fmt.Printf("Server:       %s\n", p.TargetServer)
			fmt.Printf("Type:         %s\n", p.QueryType)
			fmt.Printf("Fingerprint:  %s\n", p.Fingerprint)
			fmt.Printf("Submitted:    %s\n", p.CreatedAt.Format(time.RFC3339))
			fmt.Printf("SQL:\n%s\n", p.SQL)
			return nil
		},
	}
}

func newPendingApproveCmd() *cobra.Command {
	var (
		whitelist   bool
		servers     []string
		powerbiOnly bool
		tags        []string
		description string
	)

	cmd := &cobra.Command{
		Use:   "approve <approval-id>",
		Short: "Approve a pending query, optionally adding it to the whitelist",
		Example: `  # Approve and whitelist for two servers
  gatectl pending approve 6f1c... --whitelist --servers prod,reporting --description "monthly revenue"

  # Approve without whitelisting (one-off)
  gatectl pending approve 6f1c...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]interface{}{
				"add_to_whitelist":    whitelist,
				"server_restrictions": servers,
				"powerbi_only":        powerbiOnly,
				"tags":                tags,
				"description":         description,
			}
			var resp struct {
				WhitelistID string `json:"whitelist_id"`
			}
			if err := clientFrom(cmd.Context()).post(cmd.Context(), "/approvals/"+args[0]+"/approve", body, &resp); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, resp)
			}
			if resp.WhitelistID != "" {
				fmt.Printf("approved, whitelist entry %s\n", resp.WhitelistID)
			} else {
				fmt.Println("approved")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&whitelist, "whitelist", false, "add the query to the whitelist")
	cmd.Flags().StringSliceVar(&servers, "servers", nil, "restrict the whitelist entry to these server aliases")
	cmd.Flags().BoolVar(&powerbiOnly, "powerbi-only", false, "flag the entry as runnable by the powerbi role")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "tags for the whitelist entry")
	cmd.Flags().StringVar(&description, "description", "", "description for the whitelist entry")
	return cmd
}

func newPendingRejectCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reject <approval-id>",
		Short: "Reject a pending query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if reason == "" {
				return fmt.Errorf("--reason is required")
			}
			body := map[string]interface{}{"reason": reason}
			if err := clientFrom(cmd.Context()).post(cmd.Context(), "/approvals/"+args[0]+"/reject", body, nil); err != nil {
				return err
			}
			fmt.Println("rejected")
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded in the audit log")
	return cmd
}

func truncateSQL(s string, n int) string {
	flat := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			r = ' '
		}
		flat = append(flat, r)
	}
	if len(flat) > n {
		return string(flat[:n-3]) + "..."
	}
	return string(flat)
}
