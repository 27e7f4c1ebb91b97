package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fachebot/counsel-assist/internal/domain"
)

type CategorizeRequest struct {
	Question string `json:"question"`
}

type CategorizeResponse struct {
	Category string
	Response string
}

type ChatRequest struct {
	Message  string           `json:"message"`
	Category string           `json:"category"`
	History  []domain.Message `json:"history"`
}

type ChatResponse struct {
	Response string
}

type ExamplesRequest struct {
	History []domain.Message `json:"history"`
}

// ExamplesResponse 相似对话，列表可能为空
type ExamplesResponse struct {
	HighQuality []domain.Example
	LowQuality  []domain.Example
}

// Categorize 对首个问题分类，并返回第一条 AI 回复
func (c *Client) Categorize(ctx context.Context, question string) (*CategorizeResponse, error) {
	var raw categorizeBody
	if err := c.postJSON(ctx, OpCategorize, "/api/categorize", CategorizeRequest{Question: question}, &raw); err != nil {
		return nil, err
	}
	return &CategorizeResponse{Category: *raw.Category, Response: *raw.Response}, nil
}

type categorizeBody struct {
	Category *string `json:"category"`
	Response *string `json:"response"`
}

func (b *categorizeBody) validate() error {
	if b.Category == nil || *b.Category == "" {
		return errors.New("缺少 category 字段")
	}
	if b.Response == nil {
		return errors.New("缺少 response 字段")
	}
	return nil
}

// Chat 在已分类的会话中继续对话，history 为本条消息之前的全部消息
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.History == nil {
		req.History = []domain.Message{}
	}
	var raw chatBody
	if err := c.postJSON(ctx, OpChat, "/api/chat", req, &raw); err != nil {
		return nil, err
	}
	return &ChatResponse{Response: *raw.Response}, nil
}

type chatBody struct {
	Response *string `json:"response"`
}

func (b *chatBody) validate() error {
	if b.Response == nil {
		return errors.New("缺少 response 字段")
	}
	return nil
}

// FetchExamples 根据当前对话查询相似的高质量和低质量示例
func (c *Client) FetchExamples(ctx context.Context, history []domain.Message) (*ExamplesResponse, error) {
	if history == nil {
		history = []domain.Message{}
	}
	var raw examplesBody
	if err := c.postJSON(ctx, OpExamples, "/api/examples", ExamplesRequest{History: history}, &raw); err != nil {
		return nil, err
	}
	return &ExamplesResponse{HighQuality: raw.high, LowQuality: raw.low}, nil
}

type examplesBody struct {
	HighQuality []json.RawMessage `json:"highQuality"`
	LowQuality  []json.RawMessage `json:"lowQuality"`

	high []domain.Example
	low  []domain.Example
}

func (b *examplesBody) validate() error {
	var err error
	if b.high, err = decodeExamples(b.HighQuality); err != nil {
		return fmt.Errorf("highQuality: %w", err)
	}
	if b.low, err = decodeExamples(b.LowQuality); err != nil {
		return fmt.Errorf("lowQuality: %w", err)
	}
	return nil
}

func decodeExamples(items []json.RawMessage) ([]domain.Example, error) {
	examples := make([]domain.Example, 0, len(items))
	for i, item := range items {
		example, err := decodeExample(item)
		if err != nil {
			return nil, fmt.Errorf("第 %d 项: %w", i, err)
		}
		examples = append(examples, example)
	}
	return examples, nil
}

// decodeExample 示例可以是原始对话文本，也可以是 {sender, content} 数组
func decodeExample(item json.RawMessage) (domain.Example, error) {
	trimmed := bytes.TrimSpace(item)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return domain.Example{}, nil
	}

	switch trimmed[0] {
	case '"':
		var transcript string
		if err := json.Unmarshal(trimmed, &transcript); err != nil {
			return domain.Example{}, err
		}
		return domain.Example{Transcript: transcript}, nil
	case '[':
		var turns []domain.ExampleTurn
		if err := json.Unmarshal(trimmed, &turns); err != nil {
			return domain.Example{}, err
		}
		return domain.Example{Turns: turns}, nil
	default:
		return domain.Example{}, errors.New("不支持的示例格式")
	}
}
