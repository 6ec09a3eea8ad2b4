package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/Sternrassler/spoke-connector/pkg/config"
	"github.com/Sternrassler/spoke-connector/pkg/history"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int64

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent collection runs recorded in Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			if cfg.Redis.Addr == "" {
				return &config.ConfigurationError{Field: "redis.addr", Reason: "is required to read execution history"}
			}

			rdb, err := openRedis(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rdb.Close()

			runs, err := history.NewRedisStore(rdb).Recent(cmd.Context(), cfg.Instance.ID, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no runs recorded for instance %s\n", cfg.Instance.ID)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN ID\tSTARTED\tDURATION\tSUCCESS")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\n",
					r.RunID,
					r.StartedOn.UTC().Format(time.RFC3339),
					r.Duration().Round(time.Millisecond),
					r.Success)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int64VarP(&limit, "limit", "n", 10, "number of runs to list")
	return cmd
}
