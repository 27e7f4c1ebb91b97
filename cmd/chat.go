package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fachebot/counsel-assist/internal/conversation"
	"github.com/fachebot/counsel-assist/internal/domain"
	"github.com/fachebot/counsel-assist/internal/state/chat"
	"github.com/fachebot/counsel-assist/internal/view"
	"github.com/spf13/cobra"
)

const chatHelp = `Commands:
  /similar   show similar counseling conversations
  /history   show the conversation so far
  /reset     start a new conversation
  /quit      exit`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation with the counseling assistant.

The first message is categorized by the backend; every later message is sent
together with the category and the conversation so far. Press Ctrl-C while
waiting for a reply to cancel the request.

` + chatHelp,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svcCtx, cleanup, err := startService(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		return runChat(cmd, svcCtx.Conversation, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, controller *conversation.Controller, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, chatHelp)
	fmt.Fprintln(out)

	// 订阅状态变化，输出分类和新增的回复
	printed := 0
	category := ""
	loading := false
	unsubscribe := controller.Store().Subscribe(func(s chat.State) {
		if len(s.Messages) < printed {
			printed = 0
		}
		if s.Category != category {
			category = s.Category
			if badge := view.CategoryBadge(category); badge != "" {
				fmt.Fprintln(out, badge)
			}
		}
		for _, m := range s.Messages[printed:] {
			if m.Sender == domain.SenderAI {
				fmt.Fprintln(out, view.Message(m))
				fmt.Fprintln(out)
			}
		}
		printed = len(s.Messages)
		if s.IsLoading && !loading {
			fmt.Fprintln(out, view.Loading())
		}
		loading = s.IsLoading
	})
	defer unsubscribe()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		text := scanner.Text()
		switch strings.TrimSpace(text) {
		case "/quit", "/exit":
			return nil
		case "/reset":
			controller.Reset()
			fmt.Fprintln(out, "New conversation started.")
			continue
		case "/similar":
			ctx, stop := signalContext(cmd.Context())
			examples := controller.FetchSimilar(ctx)
			stop()
			fmt.Fprintln(out, view.SimilarExamples(examples))
			continue
		case "/history":
			if messages := controller.State().Messages; len(messages) > 0 {
				fmt.Fprintln(out, view.Messages(messages))
			} else {
				fmt.Fprintln(out, "No messages yet.")
			}
			fmt.Fprintln(out)
			continue
		}

		ctx, stop := signalContext(cmd.Context())
		err := controller.Submit(ctx, text)
		stop()
		if errors.Is(err, conversation.ErrEmptyInput) {
			continue
		}
		if err != nil {
			return err
		}
	}
}
