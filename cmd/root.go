package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fachebot/counsel-assist/internal/config"
	"github.com/fachebot/counsel-assist/internal/logger"
	"github.com/fachebot/counsel-assist/internal/svc"
	"github.com/fachebot/counsel-assist/internal/view"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	configFile  string
	verbose     bool
	metricsAddr string
	version     string = "dev"

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "counsel",
	Short: "Terminal client for the counseling assistant backend",
	Long: `A terminal client for the mental-health counseling assistant.

Chat with the assistant (the first message is categorized, later messages
carry the category and history), browse similar counseling conversations,
and summarize session notes from text, documents or audio recordings.

Quick Start:
  counsel chat                              # Start a conversation
  counsel summarize --text "notes..."       # Summarize pasted notes
  counsel summarize --audio session.mp3     # Summarize an audio recording
  counsel download <summary-id> --out pdf   # Save the summary PDF`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load(".env")

		c, err := loadConfig(configFile, cmd.Flags().Changed("config"))
		if err != nil {
			return fmt.Errorf("读取配置文件失败: %w", err)
		}
		cfg = c

		level := c.Log.Level
		if verbose {
			level = "debug"
		}
		logger.Init(c.Log.Dir, level, cmd.ErrOrStderr())
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "f", "etc/config.yaml", "the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// loadConfig 读取配置文件，未显式指定且默认文件不存在时使用默认配置
func loadConfig(filename string, explicit bool) (*config.Config, error) {
	c, err := config.LoadFromFile(filename)
	if err == nil {
		return c, nil
	}
	if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	c = config.Default()
	c.ApplyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// cliAlerter 在终端输出阻塞提示
type cliAlerter struct {
	out io.Writer
}

func (a cliAlerter) Alert(message string) {
	fmt.Fprintln(a.out, view.ErrorBanner(message))
}

// startService 创建服务上下文并启动后台任务，返回的 cleanup 负责关闭
func startService(cmd *cobra.Command) (*svc.ServiceContext, func(), error) {
	svcCtx, err := svc.NewServiceContext(cfg, cliAlerter{out: cmd.ErrOrStderr()})
	if err != nil {
		return nil, nil, err
	}
	if err := svcCtx.Start(); err != nil {
		svcCtx.Close()
		return nil, nil, err
	}

	var server *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(svcCtx.Registry, promhttp.HandlerOpts{}))
		server = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Infof("[Metrics] 监听 %s", metricsAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("[Metrics] 服务异常退出, %v", err)
			}
		}()
	}

	cleanup := func() {
		if server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
		}
		svcCtx.Close()
	}
	return svcCtx, cleanup, nil
}

// signalContext 收到 SIGINT / SIGTERM 时取消
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
