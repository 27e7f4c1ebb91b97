package summarization

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fachebot/counsel-assist/internal/api"
	"github.com/fachebot/counsel-assist/internal/domain"
	"github.com/fachebot/counsel-assist/internal/logger"
	"github.com/fachebot/counsel-assist/internal/state/summary"
)

// 各输入方式失败时展示的错误
const (
	TextErrorMessage  = "Failed to process text. Please try again."
	FileErrorMessage  = "Failed to process file. Please try again."
	AudioErrorMessage = "Failed to process audio. Please try again."
	PDFErrorMessage   = "Failed to download PDF. Please try again."
)

var (
	ErrEmptyText       = errors.New("文本为空")
	ErrNoFile          = errors.New("未选择文件")
	ErrNoAudio         = errors.New("未选择音频")
	ErrBusy            = errors.New("上一个请求仍在处理中")
	ErrInvalidMethod   = errors.New("未知的输入方式")
	ErrDownloadRunning = errors.New("该总结的 PDF 正在下载")
)

// summarizationAPI 总结相关的后端接口（便于测试注入 mock）
type summarizationAPI interface {
	SubmitText(ctx context.Context, text string) (*api.SummaryResponse, error)
	SubmitFile(ctx context.Context, file *api.Attachment) (*api.SummaryResponse, error)
	SubmitAudio(ctx context.Context, audio *api.Attachment) (*api.SummaryResponse, error)
	DownloadPDF(ctx context.Context, summaryID string) ([]byte, error)
}

// Alerter 阻塞式提示，用户确认后返回
type Alerter interface {
	Alert(message string)
}

// Controller 总结流程：选择输入方式，提交，展示结果，下载 PDF
type Controller struct {
	api     summarizationAPI
	store   *summary.Store
	alerter Alerter

	mu sync.Mutex
	// session 每次 Reset 递增，旧会话的提交结果不再写入状态
	session uint64
	cancel  context.CancelFunc

	downloadsMu sync.Mutex
	downloads   map[string]struct{}
}

func NewController(client summarizationAPI, store *summary.Store, alerter Alerter) *Controller {
	return &Controller{
		api:       client,
		store:     store,
		alerter:   alerter,
		downloads: make(map[string]struct{}),
	}
}

// State 当前总结状态
func (c *Controller) State() summary.State {
	return c.store.State()
}

// Store 底层状态存储，供视图订阅
func (c *Controller) Store() *summary.Store {
	return c.store
}

// SelectInputMethod 切换输入方式，已输入的内容保留
func (c *Controller) SelectInputMethod(method summary.InputMethod) error {
	if !method.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidMethod, method)
	}
	c.store.Dispatch(summary.SetInputMethod{Method: method})
	return nil
}

func (c *Controller) SetText(text string) {
	c.store.Dispatch(summary.SetTextInput{Text: text})
}

// AttachFile 选择文档，替换之前的选择
func (c *Controller) AttachFile(att *api.Attachment) error {
	if err := prepare(KindFile, att); err != nil {
		return err
	}
	c.store.Dispatch(summary.SetFile{File: att})
	return nil
}

// AttachAudio 选择音频，替换之前的选择
func (c *Controller) AttachAudio(att *api.Attachment) error {
	if err := prepare(KindAudio, att); err != nil {
		return err
	}
	c.store.Dispatch(summary.SetAudio{Audio: att})
	return nil
}

// prepare 校验格式，并使用可接受列表中的 MIME 类型
func prepare(kind Kind, att *api.Attachment) error {
	if err := ValidateAttachment(kind, att); err != nil {
		return err
	}
	if types := MIMETypes(kind, att.Ext()); len(types) > 0 {
		att.ContentType = types[0]
	}
	return nil
}

func (c *Controller) RemoveFile() {
	c.store.Dispatch(summary.SetFile{File: nil})
}

func (c *Controller) RemoveAudio() {
	c.store.Dispatch(summary.SetAudio{Audio: nil})
}

// Reset 清除输入和结果，保留输入方式，取消进行中的提交
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.store.Dispatch(summary.Reset{})
}

// Submit 按当前输入方式提交
// 校验失败时返回错误且不发起请求，后端失败记录在状态的 Error 中
func (c *Controller) Submit(ctx context.Context) error {
	ctx, session, s, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer c.finish(session)

	var (
		resp    *api.SummaryResponse
		failure string
	)
	switch s.InputMethod {
	case summary.InputFile:
		resp, err = c.api.SubmitFile(ctx, s.File)
		failure = FileErrorMessage
	case summary.InputAudio:
		resp, err = c.api.SubmitAudio(ctx, s.Audio)
		failure = AudioErrorMessage
	default:
		resp, err = c.api.SubmitText(ctx, s.TextInput)
		failure = TextErrorMessage
	}

	if err != nil {
		logger.Errorf("[Summarization] 提交失败, method: %s, %v", s.InputMethod, err)
		c.dispatch(session, summary.SetError{Error: failure})
		return nil
	}

	result := Normalize(resp)
	if !c.dispatch(session, summary.SetResults{Results: result}) {
		logger.Debugf("[Summarization] 已重置，丢弃旧的总结结果, id: %s", result.ID)
		return nil
	}
	logger.Infof("[Summarization] 总结完成, method: %s, id: %s", s.InputMethod, result.ID)
	return nil
}

// begin 校验输入并进入 loading 状态，返回可被 Reset 取消的上下文
func (c *Controller) begin(parent context.Context) (context.Context, uint64, summary.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.store.State()
	if s.IsLoading {
		return parent, c.session, s, ErrBusy
	}
	if err := validateInput(s); err != nil {
		return parent, c.session, s, err
	}

	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	c.store.Dispatch(summary.SetLoading{Loading: true})
	return ctx, c.session, s, nil
}

// finish 释放本次提交的上下文
func (c *Controller) finish(session uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == session && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// dispatch 仅在未被重置时写入状态
func (c *Controller) dispatch(session uint64, action summary.Action) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != session {
		return false
	}
	c.store.Dispatch(action)
	return true
}

func validateInput(s summary.State) error {
	switch s.InputMethod {
	case summary.InputText:
		if strings.TrimSpace(s.TextInput) == "" {
			return ErrEmptyText
		}
	case summary.InputFile:
		if s.File == nil {
			return ErrNoFile
		}
		return ValidateAttachment(KindFile, s.File)
	case summary.InputAudio:
		if s.Audio == nil {
			return ErrNoAudio
		}
		return ValidateAttachment(KindAudio, s.Audio)
	default:
		return ErrInvalidMethod
	}
	return nil
}

// Normalize 将后端响应转换为总结结果，缺失的字段使用空值
func Normalize(resp *api.SummaryResponse) *domain.SummaryResult {
	result := &domain.SummaryResult{
		KeyPoints:       []string{},
		Themes:          []string{},
		Recommendations: []string{},
	}
	if resp == nil {
		return result
	}

	result.ID = string(resp.ID)
	result.Transcript = deref(resp.Transcript)
	result.Summary = deref(resp.Summary)
	result.Notes = deref(resp.Notes)
	if resp.KeyPoints != nil {
		result.KeyPoints = resp.KeyPoints
	}
	if resp.Themes != nil {
		result.Themes = resp.Themes
	}
	if resp.Recommendations != nil {
		result.Recommendations = resp.Recommendations
	}
	return result
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// PDFFileName 下载保存的文件名
func PDFFileName(summaryID string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(summaryID)
	return fmt.Sprintf("summary-%s.pdf", safe)
}

// DownloadPDF 下载总结 PDF 并保存到 dir，返回文件路径
// 失败时通过 Alerter 提示，同一总结的下载不会并发进行
func (c *Controller) DownloadPDF(ctx context.Context, summaryID, dir string) (string, error) {
	if !c.acquireDownload(summaryID) {
		return "", ErrDownloadRunning
	}
	defer c.releaseDownload(summaryID)

	path, err := c.downloadPDF(ctx, summaryID, dir)
	if err != nil {
		logger.Errorf("[Summarization] 下载 PDF 失败, id: %s, %v", summaryID, err)
		if c.alerter != nil {
			c.alerter.Alert(PDFErrorMessage)
		}
		return "", err
	}

	logger.Infof("[Summarization] PDF 已保存, path: %s", path)
	return path, nil
}

func (c *Controller) downloadPDF(ctx context.Context, summaryID, dir string) (string, error) {
	data, err := c.api.DownloadPDF(ctx, summaryID)
	if err != nil {
		return "", err
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("创建目录失败: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".summary-*.pdf.tmp")
	if err != nil {
		return "", fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("关闭临时文件失败: %w", err)
	}

	path := filepath.Join(dir, PDFFileName(summaryID))
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("保存 PDF 失败: %w", err)
	}
	return path, nil
}

func (c *Controller) acquireDownload(summaryID string) bool {
	c.downloadsMu.Lock()
	defer c.downloadsMu.Unlock()

	if _, ok := c.downloads[summaryID]; ok {
		return false
	}
	c.downloads[summaryID] = struct{}{}
	return true
}

func (c *Controller) releaseDownload(summaryID string) {
	c.downloadsMu.Lock()
	defer c.downloadsMu.Unlock()

	delete(c.downloads, summaryID)
}
