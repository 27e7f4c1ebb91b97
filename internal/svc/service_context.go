package svc

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/fachebot/counsel-assist/internal/api"
	"github.com/fachebot/counsel-assist/internal/config"
	"github.com/fachebot/counsel-assist/internal/conversation"
	"github.com/fachebot/counsel-assist/internal/logger"
	"github.com/fachebot/counsel-assist/internal/model"
	"github.com/fachebot/counsel-assist/internal/scheduler"
	"github.com/fachebot/counsel-assist/internal/state/chat"
	"github.com/fachebot/counsel-assist/internal/state/summary"
	"github.com/fachebot/counsel-assist/internal/summarization"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/proxy"
)

type ServiceContext struct {
	Config          *config.Config
	DB              *entsql.Driver
	TransportProxy  *http.Transport
	Registry        *prometheus.Registry
	Metrics         *api.Metrics
	RequestLogModel *model.RequestLogModel
	APIClient       *api.Client
	Scheduler       *scheduler.Scheduler
	Conversation    *conversation.Controller
	Summarization   *summarization.Controller
}

func NewServiceContext(c *config.Config, alerter summarization.Alerter) (*ServiceContext, error) {
	svcCtx := &ServiceContext{
		Config:   c,
		Registry: prometheus.NewRegistry(),
	}
	svcCtx.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	svcCtx.Metrics = api.NewMetrics(svcCtx.Registry)

	opts := []api.Option{api.WithMetrics(svcCtx.Metrics)}

	// 创建SOCKS5代理
	if c.Sock5Proxy.Enable {
		transport, err := newProxyTransport(c.Sock5Proxy)
		if err != nil {
			return nil, err
		}
		svcCtx.TransportProxy = transport
		opts = append(opts, api.WithTransport(transport))
	}

	// 打开请求日志数据库
	if c.RequestLog.Enable {
		db, err := openRequestLog(c.RequestLog.Path)
		if err != nil {
			return nil, err
		}
		svcCtx.DB = db
		svcCtx.RequestLogModel = model.NewRequestLogModel(db)
		if err := svcCtx.RequestLogModel.Migrate(context.Background()); err != nil {
			db.Close()
			return nil, err
		}
		svcCtx.Scheduler = scheduler.NewScheduler(svcCtx.RequestLogModel, &c.RequestLog)
		opts = append(opts, api.WithRecorder(svcCtx.RequestLogModel))
	}

	svcCtx.APIClient = api.NewClient(&c.API, opts...)
	svcCtx.Conversation = conversation.NewController(svcCtx.APIClient, chat.NewStore())
	svcCtx.Summarization = summarization.NewController(svcCtx.APIClient, summary.NewStore(), alerter)
	return svcCtx, nil
}

func newProxyTransport(c config.Sock5Proxy) (*http.Transport, error) {
	socks5Proxy := fmt.Sprintf("%s:%d", c.Host, c.Port)
	dialer, err := proxy.SOCKS5("tcp", socks5Proxy, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("创建SOCKS5代理失败: %w", err)
	}

	transport := &http.Transport{Dial: dialer.Dial}
	if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = contextDialer.DialContext
	}
	return transport, nil
}

func openRequestLog(path string) (*entsql.Driver, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建数据目录失败: %w", err)
		}
	}

	drv, err := entsql.Open(dialect.SQLite, fmt.Sprintf("file:%s?mode=rwc&_journal_mode=WAL&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	return drv, nil
}

// Start 启动后台任务
func (svcCtx *ServiceContext) Start() error {
	if svcCtx.Scheduler == nil {
		return nil
	}
	return svcCtx.Scheduler.Start()
}

func (svcCtx *ServiceContext) Close() {
	if svcCtx.Scheduler != nil {
		svcCtx.Scheduler.Stop()
	}
	if svcCtx.DB != nil {
		if err := svcCtx.DB.Close(); err != nil {
			logger.Errorf("关闭数据库失败, %v", err)
		}
	}
}
