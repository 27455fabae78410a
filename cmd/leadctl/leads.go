package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jkindrix/fitai/internal/domain"
	"github.com/jkindrix/fitai/internal/validation"
)

func (a *app) leadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "Inspect captured leads",
	}
	cmd.AddCommand(a.leadsListCmd())
	cmd.AddCommand(a.leadsShowCmd())
	return cmd
}

func (a *app) leadsListCmd() *cobra.Command {
	var (
		limit, offset int
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List leads, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := validation.ValidatePagination(limit, offset, validation.DefaultPaginationConfig())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			_, store, err := a.open(ctx, false)
			if err != nil {
				return err
			}
			defer store.Close()

			leads, err := store.List(ctx, page.Limit, page.Offset)
			if err != nil {
				return fmt.Errorf("list leads: %w", err)
			}
			total, err := store.Count(ctx)
			if err != nil {
				return fmt.Errorf("count leads: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, map[string]any{"leads": leads, "total": total})
			}
			writeTable(out, leads)
			fmt.Fprintf(out, "\nshowing %d of %d lead(s)\n", len(leads), total)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of leads to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of leads to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func (a *app) leadsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one lead as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid lead id %q", args[0])
			}

			ctx := cmd.Context()
			_, store, err := a.open(ctx, false)
			if err != nil {
				return err
			}
			defer store.Close()

			lead, err := store.GetByID(ctx, id)
			if err != nil {
				return fmt.Errorf("get lead: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), lead)
		},
	}
}

func writeTable(w io.Writer, leads []*domain.Lead) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSOURCE\tNAME\tEMAIL\tGOAL")
	for _, l := range leads {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			l.ID, l.CreatedAt.Format(time.RFC3339), l.Source, l.Name, l.Email, truncate(l.Goal, 40))
	}
	_ = tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
