package cmd

import (
	"fmt"

	"github.com/fachebot/counsel-assist/internal/api"
	"github.com/spf13/cobra"
)

var downloadOut string

var downloadCmd = &cobra.Command{
	Use:   "download <summary-id>",
	Short: "Download the PDF report of a summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svcCtx, cleanup, err := startService(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		path, err := svcCtx.Summarization.DownloadPDF(ctx, args[0], downloadOut)
		if err != nil {
			return describeAPIError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "PDF saved to %s\n", path)
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadOut, "out", "o", ".", "Directory to save the PDF")
	rootCmd.AddCommand(downloadCmd)
}

// describeAPIError 连接不上后端时提示检查地址和代理
func describeAPIError(err error) error {
	if api.IsNetworkError(err) {
		return fmt.Errorf("无法连接后端，请检查 API.BaseURL 和 Sock5Proxy 配置: %w", err)
	}
	return err
}
