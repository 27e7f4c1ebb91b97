package domain

import (
	"time"
)

// Sender 消息发送方
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Message 对话中的单条消息，追加后不再修改
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// IsAI 是否为 AI 回复
func (m Message) IsAI() bool {
	return m.Sender == SenderAI
}

// 常见的咨询问题分类
const (
	CategoryAnxiety      = "anxiety"
	CategoryDepression   = "depression"
	CategoryRelationship = "relationship"
	CategoryTrauma       = "trauma"
	CategoryGeneral      = "general"
)

// SummaryResult 总结结果
// KeyPoints / Themes / Recommendations 始终非 nil
type SummaryResult struct {
	ID              string   `json:"id,omitempty"`
	Transcript      string   `json:"transcript,omitempty"`
	Summary         string   `json:"summary"`
	Notes           string   `json:"notes"`
	KeyPoints       []string `json:"keyPoints"`
	Themes          []string `json:"themes"`
	Recommendations []string `json:"recommendations"`
}

// HasDownload 是否可以下载 PDF
func (r *SummaryResult) HasDownload() bool {
	return r != nil && r.ID != ""
}

// ExampleTurn 示例对话中的一轮发言
type ExampleTurn struct {
	Sender  string `json:"sender"` // counselor / client
	Content string `json:"content"`
}

// IsCounselor 是否为咨询师发言
func (t ExampleTurn) IsCounselor() bool {
	return t.Sender == "counselor"
}

// Example 相似对话示例：原始文本或结构化发言序列，二者取其一
type Example struct {
	Transcript string
	Turns      []ExampleTurn
}

// IsStructured 是否为结构化发言序列
func (e Example) IsStructured() bool {
	return len(e.Turns) > 0
}

// IsEmpty 是否没有任何内容
func (e Example) IsEmpty() bool {
	return e.Transcript == "" && len(e.Turns) == 0
}

const (
	NoHighQualityExample = "No high-quality example available."
	NoLowQualityExample  = "No low-quality example available."
)

// SimilarExamples 高质量与低质量的相似对话示例
type SimilarExamples struct {
	HighQuality Example
	LowQuality  Example
}
