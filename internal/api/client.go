package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fachebot/counsel-assist/internal/config"
	"github.com/fachebot/counsel-assist/internal/logger"
	"golang.org/x/time/rate"
)

// Op 后端逻辑操作名
type Op string

const (
	OpCategorize  Op = "categorize"
	OpChat        Op = "chat"
	OpExamples    Op = "fetch-examples"
	OpSubmitText  Op = "submit-text"
	OpSubmitFile  Op = "submit-file"
	OpSubmitAudio Op = "submit-audio"
	OpDownloadPDF Op = "download-pdf"
)

// defaultMaxResponseBytes 单个响应体读取上限
const defaultMaxResponseBytes = 64 << 20

// RequestRecord 一次后端请求的诊断信息，不包含请求和响应内容
type RequestRecord struct {
	Op            Op
	Method        string
	Path          string
	Status        int
	Duration      time.Duration
	RequestBytes  int64
	ResponseBytes int64
	Error         string
	StartedAt     time.Time
}

// Recorder 接收请求诊断信息（便于持久化或测试注入）
type Recorder interface {
	Record(rec RequestRecord)
}

type Option func(c *Client)

// WithHTTPClient 替换底层 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTransport 使用指定的 Transport，例如 SOCKS5 代理
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.httpClient = &http.Client{Transport: rt}
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// WithMaxResponseBytes 响应体大小上限，超出视为响应格式错误
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResponseBytes = n
		}
	}
}

type Client struct {
	baseURL          string
	userAgent        string
	timeout          time.Duration
	downloadTimeout  time.Duration
	httpClient       *http.Client
	limiter          *rate.Limiter
	metrics          *Metrics
	recorder         Recorder
	maxResponseBytes int64
}

func NewClient(cfg *config.API, opts ...Option) *Client {
	client := &Client{
		baseURL:          strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		userAgent:        cfg.UserAgent,
		timeout:          time.Duration(cfg.Timeout) * time.Second,
		downloadTimeout:  time.Duration(cfg.DownloadTimeout) * time.Second,
		httpClient:       &http.Client{},
		maxResponseBytes: defaultMaxResponseBytes,
	}
	if cfg.RateLimit.RPS > 0 {
		client.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// request 单次请求的描述
type request struct {
	op          Op
	method      string
	path        string
	body        []byte
	contentType string
	timeout     time.Duration
	// decode 解析成功响应，返回的错误视为响应格式错误
	decode func(data []byte) error
}

// call 执行请求：限流、超时、状态码检查、解析、指标与诊断记录
func (c *Client) call(ctx context.Context, r request) error {
	timeout := r.timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	rec := RequestRecord{
		Op:           r.op,
		Method:       r.method,
		Path:         r.path,
		RequestBytes: int64(len(r.body)),
		StartedAt:    start,
	}

	outcome, err := c.roundTrip(ctx, r, &rec)

	rec.Duration = time.Since(start)
	if err != nil {
		rec.Error = err.Error()
		logger.Debugf("[API] %s %s 失败, 耗时 %s: %v", r.method, r.path, rec.Duration, err)
	} else {
		logger.Debugf("[API] %s %s -> %d, 耗时 %s", r.method, r.path, rec.Status, rec.Duration)
	}
	c.metrics.observe(r.op, outcome, rec.Duration)
	if c.recorder != nil {
		c.recorder.Record(rec)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, r request, rec *RequestRecord) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return outcomeNetwork, &NetworkError{Op: r.op, Err: err}
		}
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return outcomeNetwork, &NetworkError{Op: r.op, Err: err}
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return outcomeNetwork, &NetworkError{Op: r.op, Err: err}
	}
	defer resp.Body.Close()

	rec.Status = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		return outcomeFailed, &RequestFailedError{
			Op:         r.op,
			Status:     resp.StatusCode,
			StatusText: statusText(resp),
		}
	}

	// 多读一个字节用于判断是否超出上限
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	rec.ResponseBytes = int64(len(data))
	if err != nil {
		return outcomeNetwork, &NetworkError{Op: r.op, Err: err}
	}
	if int64(len(data)) > c.maxResponseBytes {
		return outcomeSchema, &SchemaError{Op: r.op, Err: fmt.Errorf("响应体超过 %d 字节上限", c.maxResponseBytes)}
	}

	if r.decode != nil {
		if err := r.decode(data); err != nil {
			return outcomeSchema, &SchemaError{Op: r.op, Err: err}
		}
	}
	return outcomeSuccess, nil
}

// postJSON 以 JSON 发送 payload 并解析响应到 out
func (c *Client) postJSON(ctx context.Context, op Op, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化 %s 请求失败: %w", op, err)
	}
	return c.call(ctx, request{
		op:          op,
		method:      http.MethodPost,
		path:        path,
		body:        body,
		contentType: "application/json",
		decode: func(data []byte) error {
			return decodeObject(data, out)
		},
	})
}

// validator 响应结构自校验
type validator interface {
	validate() error
}

// decodeObject 要求响应体是 JSON 对象，out 实现 validator 时一并校验
func decodeObject(data []byte, out any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errors.New("响应体不是 JSON 对象")
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return err
	}
	if v, ok := out.(validator); ok {
		return v.validate()
	}
	return nil
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
