package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	EnvAPIBaseURL = "COUNSEL_API_BASE_URL"
	EnvLogLevel   = "COUNSEL_LOG_LEVEL"
)

type Sock5Proxy struct {
	Host   string `yaml:"Host"`
	Port   int32  `yaml:"Port"`
	Enable bool   `yaml:"Enable"`
}

type RateLimit struct {
	RPS   float64 `yaml:"RPS"`   // 每秒请求数，0 表示不限流
	Burst int     `yaml:"Burst"` // 突发请求数
}

type API struct {
	BaseURL         string    `yaml:"BaseURL"`         // 后端服务地址，如 http://localhost:8000
	Timeout         int       `yaml:"Timeout"`         // 普通请求超时（秒）
	DownloadTimeout int       `yaml:"DownloadTimeout"` // PDF 下载超时（秒）
	UserAgent       string    `yaml:"UserAgent"`
	RateLimit       RateLimit `yaml:"RateLimit"`
}

type Log struct {
	Dir   string `yaml:"Dir"`   // 日志目录，为空则只输出到控制台
	Level string `yaml:"Level"` // debug / info / warn / error
}

type RequestLog struct {
	Enable        bool   `yaml:"Enable"`
	Path          string `yaml:"Path"`          // sqlite 文件路径
	RetentionDays int    `yaml:"RetentionDays"` // 请求日志保留天数
	Cron          string `yaml:"Cron"`          // 清理任务 cron 表达式，如 "0 3 * * *"
}

type Config struct {
	Sock5Proxy Sock5Proxy `yaml:"Sock5Proxy"`
	API        API        `yaml:"API"`
	Log        Log        `yaml:"Log"`
	RequestLog RequestLog `yaml:"RequestLog"`
}

// Default 返回未加载配置文件时使用的默认配置
func Default() *Config {
	return &Config{
		API: API{
			BaseURL:         "http://localhost:8000",
			Timeout:         120,
			DownloadTimeout: 60,
			UserAgent:       "counsel-assist",
		},
		Log: Log{
			Level: "info",
		},
		RequestLog: RequestLog{
			Path:          "data/requests.db",
			RetentionDays: 7,
			Cron:          "0 3 * * *",
		},
	}
}

func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse 在默认配置之上解析 YAML，并应用环境变量覆盖
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}

	c.ApplyEnv()

	// 验证配置
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// ApplyEnv 使用环境变量覆盖配置项
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIBaseURL)); v != "" {
		c.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Log.Level = v
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	// 验证 API
	if c.API.BaseURL == "" {
		return fmt.Errorf("API.BaseURL 不能为空")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("API.BaseURL 必须是 http(s) 地址: %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("API.Timeout 必须大于 0")
	}
	if c.API.DownloadTimeout <= 0 {
		return fmt.Errorf("API.DownloadTimeout 必须大于 0")
	}
	if c.API.RateLimit.RPS < 0 {
		return fmt.Errorf("API.RateLimit.RPS 必须 >= 0")
	}
	if c.API.RateLimit.RPS > 0 && c.API.RateLimit.Burst <= 0 {
		return fmt.Errorf("API.RateLimit.Burst 必须大于 0（当 RPS > 0 时）")
	}

	// 验证 Sock5Proxy
	if c.Sock5Proxy.Enable {
		if c.Sock5Proxy.Host == "" {
			return fmt.Errorf("Sock5Proxy.Host 不能为空")
		}
		if c.Sock5Proxy.Port <= 0 {
			return fmt.Errorf("Sock5Proxy.Port 必须大于 0")
		}
	}

	// 验证 Log
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("Log.Level 必须是 'debug', 'info', 'warn' 或 'error'")
	}

	// 验证 RequestLog
	if c.RequestLog.Enable {
		if c.RequestLog.Path == "" {
			return fmt.Errorf("RequestLog.Path 不能为空")
		}
		if c.RequestLog.RetentionDays < 0 {
			return fmt.Errorf("RequestLog.RetentionDays 必须 >= 0")
		}
		if c.RequestLog.RetentionDays > 0 && c.RequestLog.Cron == "" {
			return fmt.Errorf("RequestLog.Cron 不能为空（当 RetentionDays > 0 时）")
		}
	}

	return nil
}
