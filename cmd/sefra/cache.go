package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/guihenriquebr/sefra/pkg/domain"
	"github.com/guihenriquebr/sefra/pkg/offline"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cache generation",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		applyOfflineFlags(cmd, a)

		return withWorker(cmd.Context(), a, func(ctx context.Context, w *offline.Worker) error {
			msg := fmt.Sprintf(`{"type":%q}`, domain.MessageClearCache)
			reply, err := w.HandleMessage(ctx, []byte(msg))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(reply))
			return nil
		})
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Retry the queued lead submissions once",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		applyOfflineFlags(cmd, a)

		return withWorker(cmd.Context(), a, func(ctx context.Context, w *offline.Worker) error {
			report, err := w.Sync(ctx, domain.SyncTagLead)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		})
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List the lead submissions waiting for background sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		q, err := a.queue()
		if err != nil {
			return err
		}
		subs, err := q.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(subs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No pending submissions.")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tQUEUED AT\tATTEMPTS\tLAST ERROR")
		for _, s := range subs {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ID, s.QueuedAt.Format("2006-01-02 15:04:05"), s.Attempts, s.LastError)
		}
		return tw.Flush()
	},
}

func init() {
	offlineCmd.AddCommand(clearCmd)
	offlineCmd.AddCommand(syncCmd)
	offlineCmd.AddCommand(pendingCmd)
}
