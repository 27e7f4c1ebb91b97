package view

import (
	"strings"
	"testing"

	"github.com/fachebot/counsel-assist/internal/api"
	"github.com/fachebot/counsel-assist/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCategoryLabel(t *testing.T) {
	tests := []struct {
		category string
		want     string
	}{
		{"anxiety", "Anxiety-Related Concern"},
		{"depression", "Depression-Related Concern"},
		{"relationship", "Relationship Issue"},
		{"trauma", "Trauma-Related Concern"},
		{"general", "General Wellness Concern"},
		{"grief", "Client Concern"},
		{"", "Client Concern"},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryLabel(tt.category))
		})
	}
}

func TestCategoryBadge(t *testing.T) {
	assert.Empty(t, CategoryBadge(""))
	assert.Contains(t, CategoryBadge("trauma"), "Trauma-Related Concern")
}

func TestMessages(t *testing.T) {
	out := Messages([]domain.Message{
		{ID: "1", Content: "I can't sleep", Sender: domain.SenderUser},
		{ID: "2", Content: "Let's talk about it", Sender: domain.SenderAI},
	})

	assert.Contains(t, out, "You")
	assert.Contains(t, out, "Assistant")
	assert.Less(t, strings.Index(out, "I can't sleep"), strings.Index(out, "Let's talk about it"))
}

func TestExample(t *testing.T) {
	tests := []struct {
		name     string
		example  domain.Example
		contains []string
	}{
		{
			name: "结构化发言",
			example: domain.Example{Turns: []domain.ExampleTurn{
				{Sender: "counselor", Content: "How are you feeling?"},
				{Sender: "client", Content: "Tired."},
				{Sender: "unknown", Content: "Hmm."},
			}},
			contains: []string{"Counselor:", "How are you feeling?", "Client:", "Tired.", "Hmm."},
		},
		{
			name:     "原始文本",
			example:  domain.Example{Transcript: domain.NoLowQualityExample},
			contains: []string{domain.NoLowQualityExample},
		},
		{
			name:     "空示例",
			example:  domain.Example{},
			contains: []string{NoConversationData},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Example("High-Quality Example", tt.example)
			assert.Contains(t, out, "High-Quality Example")
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
		})
	}
}

func TestExample_UnknownSenderIsClient(t *testing.T) {
	out := Example("x", domain.Example{Turns: []domain.ExampleTurn{{Sender: "therapist", Content: "hi"}}})
	assert.Contains(t, out, "Client:")
	assert.NotContains(t, out, "Counselor:")
}

func TestSummaryResult(t *testing.T) {
	assert.Empty(t, SummaryResult(nil))

	out := SummaryResult(&domain.SummaryResult{
		ID:              "42",
		Summary:         "Client discussed work stress.",
		Notes:           "Monitor sleep.",
		KeyPoints:       []string{"stress at work"},
		Themes:          []string{},
		Recommendations: []string{"weekly sessions"},
	})
	assert.Contains(t, out, "Session Summary")
	assert.Contains(t, out, "Client discussed work stress.")
	assert.Contains(t, out, "Clinical Notes")
	assert.Contains(t, out, "Key Points")
	assert.Contains(t, out, "• stress at work")
	assert.NotContains(t, out, "Themes")
	assert.Contains(t, out, "Recommendations")
	assert.Contains(t, out, "download 42")
	assert.NotContains(t, out, "Transcript")

	out = SummaryResult(&domain.SummaryResult{Transcript: "audio text"})
	assert.Contains(t, out, "Transcript")
	assert.NotContains(t, out, "Summary ID")
}

func TestSizes(t *testing.T) {
	assert.Equal(t, "1.50 KB", FileSize(1536))
	assert.Equal(t, "2.50 MB", AudioSize(2621440))

	file := api.NewBytesAttachment("notes.txt", make([]byte, 2048))
	assert.Equal(t, "notes.txt (2.00 KB)", FileAttachment(file))
	assert.Empty(t, FileAttachment(nil))

	audio := api.NewBytesAttachment("session.mp3", make([]byte, 1048576))
	assert.Equal(t, "session.mp3 (1.00 MB)", AudioAttachment(audio))
	assert.Empty(t, AudioAttachment(nil))
}

func TestCharCount(t *testing.T) {
	assert.Contains(t, CharCount("héllo"), "5 characters")
	assert.Contains(t, CharCount(strings.Repeat("a", 1200)), "1,200 characters")
}

func TestErrorBanner(t *testing.T) {
	assert.Empty(t, ErrorBanner(""))
	assert.Contains(t, ErrorBanner("Failed to process text. Please try again."), "Failed to process text")
}
