package cli

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

type auditEntry struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Role            string    `json:"role"`
	ClientIP        string    `json:"client_ip"`
	QueryText       string    `json:"query_text"`
	Fingerprint     string    `json:"fingerprint"`
	WhitelistID     *string   `json:"whitelist_id,omitempty"`
	TargetServer    string    `json:"target_server"`
	Status          string    `json:"status"`
	ErrorMessage    *string   `json:"error_message,omitempty"`
	ExecutionTimeMs *int64    `json:"execution_time_ms,omitempty"`
	RowsAffected    *int64    `json:"rows_affected,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func newAuditCmd() *cobra.Command {
	var (
		username  string
		server    string
		status    string
		since     time.Duration
		limit     int
		pageToken string
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List audit log entries, newest first",
		Example: `  # Rejections in the last hour
  gatectl audit --status rejected --since 1h

  # Everything a user did against prod
  gatectl audit --username alice --server prod`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			q.Set("max_results", strconv.Itoa(limit))
			if pageToken != "" {
				q.Set("page_token", pageToken)
			}
			if username != "" {
				q.Set("username", username)
			}
			if server != "" {
				q.Set("server", server)
			}
			if status != "" {
				q.Set("status", status)
			}
			if since > 0 {
				q.Set("from", time.Now().UTC().Add(-since).Format(time.RFC3339))
			}

			var resp struct {
				Data          []auditEntry `json:"data"`
				Total         int64        `json:"total"`
				NextPageToken string       `json:"next_page_token"`
			}
			if err := clientFrom(cmd.Context()).get(cmd.Context(), "/audit", q, &resp); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, resp)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tUSER\tROLE\tSERVER\tSTATUS\tMS\tROWS\tSQL")
			for _, e := range resp.Data {
				ms, rows := "-", "-"
				if e.ExecutionTimeMs != nil {
					ms = strconv.FormatInt(*e.ExecutionTimeMs, 10)
				}
				if e.RowsAffected != nil {
					rows = strconv.FormatInt(*e.RowsAffected, 10)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.Username, e.Role,
					e.TargetServer, e.Status, ms, rows, truncateSQL(e.QueryText, 50))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("\n%d of %d entries", len(resp.Data), resp.Total)
			if resp.NextPageToken != "" {
				fmt.Printf(", next page: --page-token %s", resp.NextPageToken)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "filter by submitter username")
	cmd.Flags().StringVar(&server, "server", "", "filter by target server alias")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (success, rejected, pending, approved, error, auto_approved)")
	cmd.Flags().DurationVar(&since, "since", 0, "only entries newer than this, e.g. 30m or 24h")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries per page")
	cmd.Flags().StringVar(&pageToken, "page-token", "", "token from a previous page")
	return cmd
}
