package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var requestsLimit int

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "List recent backend requests",
	Long: `List recent backend requests from the local request log.

Only diagnostic metadata is stored (operation, path, status, latency and
sizes); message content and uploaded files are never written to disk.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.RequestLog.Enable {
			return errors.New("request log is disabled (RequestLog.Enable)")
		}

		svcCtx, cleanup, err := startService(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		logs, err := svcCtx.RequestLogModel.Recent(cmd.Context(), requestsLimit)
		if err != nil {
			return fmt.Errorf("查询请求日志失败: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(logs) == 0 {
			fmt.Fprintln(out, "No requests recorded.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tOP\tMETHOD\tPATH\tSTATUS\tDURATION\tSIZE")
		for _, item := range logs {
			status := fmt.Sprintf("%d", item.Status)
			if item.Status == 0 {
				status = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				humanize.Time(item.StartedAt),
				item.Op,
				item.Method,
				item.Path,
				status,
				item.Duration.Round(time.Millisecond),
				humanize.Bytes(uint64(item.ResponseBytes)),
			)
		}
		return w.Flush()
	},
}

func init() {
	requestsCmd.Flags().IntVarP(&requestsLimit, "limit", "n", 20, "Number of requests to show")
	rootCmd.AddCommand(requestsCmd)
}
