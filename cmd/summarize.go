package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/fachebot/counsel-assist/internal/api"
	"github.com/fachebot/counsel-assist/internal/state/summary"
	"github.com/fachebot/counsel-assist/internal/summarization"
	"github.com/fachebot/counsel-assist/internal/view"
	"github.com/spf13/cobra"
)

var (
	summarizeText  string
	summarizeFile  string
	summarizeAudio string
	summarizePDF   string
)

// errSummarizeFailed 后端处理失败，错误信息已输出
var errSummarizeFailed = errors.New("summarization failed")

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize session notes, a document or an audio recording",
	Long: `Summarize a counseling session.

Exactly one input is required:
  --text   pasted notes ("-" reads from stdin)
  --file   a document (.txt, .rtf, .pdf, .doc, .docx)
  --audio  a recording (.mp3, .wav, .m4a, .ogg)

Use --pdf DIR to also download the generated PDF report.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svcCtx, cleanup, err := startService(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		return runSummarize(cmd, svcCtx.Summarization)
	},
}

func init() {
	summarizeCmd.Flags().StringVar(&summarizeText, "text", "", "Session notes to summarize (\"-\" reads stdin)")
	summarizeCmd.Flags().StringVar(&summarizeFile, "file", "", "Document to summarize")
	summarizeCmd.Flags().StringVar(&summarizeAudio, "audio", "", "Audio recording to transcribe and summarize")
	summarizeCmd.Flags().StringVar(&summarizePDF, "pdf", "", "Directory to save the PDF report")
	summarizeCmd.MarkFlagsMutuallyExclusive("text", "file", "audio")
	summarizeCmd.MarkFlagsOneRequired("text", "file", "audio")

	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, controller *summarization.Controller) error {
	out := cmd.OutOrStdout()

	switch {
	case summarizeFile != "":
		att, err := api.NewFileAttachment(summarizeFile)
		if err != nil {
			return err
		}
		if err := controller.SelectInputMethod(summary.InputFile); err != nil {
			return err
		}
		if err := controller.AttachFile(att); err != nil {
			return err
		}
		defer controller.RemoveFile()
		fmt.Fprintln(out, view.FileAttachment(att))
	case summarizeAudio != "":
		att, err := api.NewFileAttachment(summarizeAudio)
		if err != nil {
			return err
		}
		if err := controller.SelectInputMethod(summary.InputAudio); err != nil {
			return err
		}
		if err := controller.AttachAudio(att); err != nil {
			return err
		}
		defer controller.RemoveAudio()
		fmt.Fprintln(out, view.AudioAttachment(att))
	default:
		text := summarizeText
		if text == "-" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("读取标准输入失败: %w", err)
			}
			text = string(data)
		}
		if err := controller.SelectInputMethod(summary.InputText); err != nil {
			return err
		}
		controller.SetText(text)
		fmt.Fprintln(out, view.CharCount(text))
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	if err := controller.Submit(ctx); err != nil {
		return err
	}

	s := controller.State()
	if s.Error != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), view.ErrorBanner(s.Error))
		return errSummarizeFailed
	}
	fmt.Fprintln(out, view.SummaryResult(s.Results))

	if summarizePDF != "" && s.Results.HasDownload() {
		path, err := controller.DownloadPDF(ctx, s.Results.ID, summarizePDF)
		if err != nil {
			return describeAPIError(err)
		}
		fmt.Fprintf(out, "PDF saved to %s\n", path)
	}
	return nil
}
