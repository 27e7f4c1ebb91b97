package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/fachebot/counsel-assist/internal/api"
	"github.com/fachebot/counsel-assist/internal/domain"
	"github.com/fachebot/counsel-assist/internal/logger"
	"github.com/fachebot/counsel-assist/internal/state/chat"
	"github.com/google/uuid"
)

// ErrorReply 后端调用失败时追加的 AI 回复
const ErrorReply = "Sorry, I encountered an error. Please try again."

var (
	ErrEmptyInput = errors.New("输入为空")
	ErrBusy       = errors.New("上一条消息仍在处理中")
)

// adviceAPI 对话相关的后端接口（便于测试注入 mock）
type adviceAPI interface {
	Categorize(ctx context.Context, question string) (*api.CategorizeResponse, error)
	Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
	FetchExamples(ctx context.Context, history []domain.Message) (*api.ExamplesResponse, error)
}

type Option func(c *Controller)

// WithClock 替换时间来源
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithIDGenerator 替换消息 ID 生成方式
func WithIDGenerator(newID func() string) Option {
	return func(c *Controller) {
		c.newID = newID
	}
}

// Controller 两阶段对话流程：首条消息分类，之后携带分类和历史进行对话
type Controller struct {
	api   adviceAPI
	store *chat.Store
	now   func() time.Time
	newID func() string

	mu sync.Mutex
	// session 每次 Reset 递增，旧会话的请求结果不再写入状态
	session uint64
	cancel  context.CancelFunc
}

func NewController(client adviceAPI, store *chat.Store, opts ...Option) *Controller {
	c := &Controller{
		api:   client,
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State 当前对话状态
func (c *Controller) State() chat.State {
	return c.store.State()
}

// Store 底层状态存储，供视图订阅
func (c *Controller) Store() *chat.Store {
	return c.store
}

// Submit 提交一条用户消息，返回前 loading 一定已被清除
// 后端错误会被转换为 AI 回复，不会作为错误返回
// 文本按原样发送和保存，空白只用于判断是否为空
func (c *Controller) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}

	ctx, session, history, ok := c.begin(ctx)
	if !ok {
		return ErrBusy
	}
	defer c.finish(session)

	c.dispatch(session, chat.AddMessage{Message: c.message(text, domain.SenderUser)})

	reply, err := c.exchange(ctx, session, text, history)
	if err != nil {
		logger.Errorf("[Conversation] 发送消息失败, %v", err)
		reply = ErrorReply
	}
	if !c.dispatch(session, chat.AddMessage{Message: c.message(reply, domain.SenderAI)}) {
		logger.Debugf("[Conversation] 会话已重置，丢弃旧会话的回复")
	}
	return nil
}

// begin 检查并进入 loading 状态，返回可被 Reset 取消的上下文和提交前的状态快照
func (c *Controller) begin(parent context.Context) (context.Context, uint64, chat.State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.store.State()
	if s.IsLoading {
		return parent, c.session, s, false
	}

	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	c.store.Dispatch(chat.SetLoading{Loading: true})
	return ctx, c.session, s, true
}

// finish 结束本次提交，会话未被重置时清除 loading
func (c *Controller) finish(session uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != session {
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.store.Dispatch(chat.SetLoading{Loading: false})
}

// dispatch 仅在会话未被重置时写入状态
func (c *Controller) dispatch(session uint64, action chat.Action) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != session {
		return false
	}
	c.store.Dispatch(action)
	return true
}

func (c *Controller) exchange(ctx context.Context, session uint64, text string, before chat.State) (string, error) {
	if !before.CategoryReceived {
		resp, err := c.api.Categorize(ctx, text)
		if err != nil {
			return "", err
		}

		logger.Infof("[Conversation] 问题分类: %s", resp.Category)
		c.dispatch(session, chat.SetCategory{Category: resp.Category})
		return resp.Response, nil
	}

	resp, err := c.api.Chat(ctx, api.ChatRequest{
		Message:  text,
		Category: before.Category,
		History:  before.Messages,
	})
	if err != nil {
		return "", err
	}
	return resp.Response, nil
}

func (c *Controller) message(content string, sender domain.Sender) domain.Message {
	return domain.Message{
		ID:        c.newID(),
		Content:   content,
		Sender:    sender,
		Timestamp: c.now(),
	}
}

// Reset 开始新的会话，取消进行中的请求
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.store.Dispatch(chat.Reset{})
	logger.Debugf("[Conversation] 会话已重置")
}

// FetchSimilar 获取与当前对话相似的高质量和低质量示例
// 请求失败时两个示例都退回占位文本
func (c *Controller) FetchSimilar(ctx context.Context) domain.SimilarExamples {
	result := domain.SimilarExamples{
		HighQuality: domain.Example{Transcript: domain.NoHighQualityExample},
		LowQuality:  domain.Example{Transcript: domain.NoLowQualityExample},
	}

	resp, err := c.api.FetchExamples(ctx, c.store.State().Messages)
	if err != nil {
		logger.Errorf("[Conversation] 获取相似对话失败, %v", err)
		return result
	}

	if len(resp.HighQuality) > 0 {
		result.HighQuality = resp.HighQuality[0]
	}
	if len(resp.LowQuality) > 0 {
		result.LowQuality = resp.LowQuality[0]
	}
	return result
}
