package cli

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

type whitelistEntry struct {
	ID                 string    `json:"id"`
	Fingerprint        string    `json:"fingerprint"`
	SQL                string    `json:"sql"`
	QueryType          string    `json:"query_type"`
	ApprovedBy         string    `json:"approved_by"`
	ApprovedAt         time.Time `json:"approved_at"`
	ServerRestrictions []string  `json:"server_restrictions,omitempty"`
	PowerBIOnly        bool      `json:"powerbi_only"`
	Tags               []string  `json:"tags,omitempty"`
	Description        string    `json:"description,omitempty"`
	Disabled           bool      `json:"disabled"`
}

func newWhitelistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whitelist",
		Short: "Inspect and manage approved queries",
	}

	cmd.AddCommand(newWhitelistListCmd())
	cmd.AddCommand(newWhitelistShowCmd())
	cmd.AddCommand(newWhitelistDisableCmd())
	cmd.AddCommand(newWhitelistDeleteCmd())
	return cmd
}

func newWhitelistListCmd() *cobra.Command {
	var (
		limit     int
		pageToken string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List whitelist entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			q.Set("max_results", strconv.Itoa(limit))
			if pageToken != "" {
				q.Set("page_token", pageToken)
			}
			var resp struct {
				Data          []whitelistEntry `json:"data"`
				Total         int64            `json:"total"`
				NextPageToken string           `json:"next_page_token"`
			}
			if err := clientFrom(cmd.Context()).get(cmd.Context(), "/whitelist", q, &resp); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, resp)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tAPPROVED BY\tSERVERS\tPOWERBI\tDISABLED\tSQL")
			for _, e := range resp.Data {
				servers := "any"
				if len(e.ServerRestrictions) > 0 {
					servers = joinMax(e.ServerRestrictions, 3)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%t\t%s\n",
					e.ID, e.QueryType, e.ApprovedBy, servers, e.PowerBIOnly, e.Disabled,
					truncateSQL(e.SQL, 50))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if resp.NextPageToken != "" {
				fmt.Printf("\nnext page: --page-token %s\n", resp.NextPageToken)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries per page")
	cmd.Flags().StringVar(&pageToken, "page-token", "", "token from a previous page")
	return cmd
}

func newWhitelistShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <entry-id>",
		Short: "Show one whitelist entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var e whitelistEntry
			if err := clientFrom(cmd.Context()).get(cmd.Context(), "/whitelist/"+args[0], nil, &e); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, e)
			}
			fmt.Printf("ID:           %s\n", e.ID)
			fmt.Printf("Type:         %s\n", e.QueryType)
			fmt.Printf("Approved by:  %s at %s\n", e.ApprovedBy, e.ApprovedAt.Format(time.RFC3339))
			fmt.Printf("Fingerprint:  %s\n", e.Fingerprint)
			if len(e.ServerRestrictions) > 0 {
				fmt.Printf("Servers:      %s\n", joinMax(e.ServerRestrictions, 10))
			}
			fmt.Printf("PowerBI only: %t\n", e.PowerBIOnly)
			fmt.Printf("Disabled:     %t\n", e.Disabled)
			if e.Description != "" {
				fmt.Printf("Description:  %s\n", e.Description)
			}
			fmt.Printf("SQL:\n%s\n", e.SQL)
			return nil
		},
	}
}

func newWhitelistDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <entry-id>",
		Short: "Disable an entry without deleting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFrom(cmd.Context()).post(cmd.Context(), "/whitelist/"+args[0]+"/disable", map[string]interface{}{}, nil); err != nil {
				return err
			}
			fmt.Println("disabled")
			return nil
		},
	}
}

func newWhitelistDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entry-id>",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFrom(cmd.Context()).delete(cmd.Context(), "/whitelist/"+args[0]); err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		},
	}
}

func joinMax(items []string, max int) string {
	if len(items) <= max {
		return strings.Join(items, ",")
	}
	return fmt.Sprintf("%s,... (%d total)", strings.Join(items[:max], ","), len(items))
}
