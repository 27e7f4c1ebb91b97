package view

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/fachebot/counsel-assist/internal/api"
	"github.com/fachebot/counsel-assist/internal/domain"
)

const NoConversationData = "No conversation data available."

var (
	// Styles
	userLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	aiLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true)

	contentStyle = lipgloss.NewStyle().
			Padding(0, 2)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	counselorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	clientStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)
)

// CategoryLabel 分类的展示名称
func CategoryLabel(category string) string {
	switch category {
	case domain.CategoryAnxiety:
		return "Anxiety-Related Concern"
	case domain.CategoryDepression:
		return "Depression-Related Concern"
	case domain.CategoryRelationship:
		return "Relationship Issue"
	case domain.CategoryTrauma:
		return "Trauma-Related Concern"
	case domain.CategoryGeneral:
		return "General Wellness Concern"
	default:
		return "Client Concern"
	}
}

// CategoryBadge 分类标记，未分类时为空
func CategoryBadge(category string) string {
	if category == "" {
		return ""
	}
	return badgeStyle.Render(CategoryLabel(category))
}

// Message 渲染单条消息
func Message(m domain.Message) string {
	label := userLabelStyle.Render("You")
	if m.IsAI() {
		label = aiLabelStyle.Render("Assistant")
	}

	var b strings.Builder
	b.WriteString(label)
	if !m.Timestamp.IsZero() {
		b.WriteString(" ")
		b.WriteString(timestampStyle.Render(m.Timestamp.Local().Format("15:04")))
	}
	b.WriteString("\n")
	b.WriteString(contentStyle.Render(m.Content))
	return b.String()
}

// Messages 按顺序渲染对话
func Messages(messages []domain.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, Message(m))
	}
	return strings.Join(parts, "\n\n")
}

// Loading 等待回复时的提示
func Loading() string {
	return mutedStyle.Render("Assistant is typing...")
}

// Example 渲染相似对话示例
func Example(title string, ex domain.Example) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n")

	switch {
	case ex.IsStructured():
		for _, turn := range ex.Turns {
			if turn.IsCounselor() {
				b.WriteString(counselorStyle.Render("Counselor:"))
			} else {
				b.WriteString(clientStyle.Render("Client:"))
			}
			b.WriteString(" ")
			b.WriteString(turn.Content)
			b.WriteString("\n")
		}
	case ex.IsEmpty():
		b.WriteString(mutedStyle.Render(NoConversationData))
		b.WriteString("\n")
	default:
		b.WriteString(ex.Transcript)
		b.WriteString("\n")
	}
	return b.String()
}

// SimilarExamples 渲染高质量与低质量示例
func SimilarExamples(ex domain.SimilarExamples) string {
	return Example("High-Quality Example", ex.HighQuality) + "\n" +
		Example("Low-Quality Example", ex.LowQuality)
}

// SummaryResult 渲染总结结果，空列表不显示
func SummaryResult(r *domain.SummaryResult) string {
	if r == nil {
		return ""
	}

	var b strings.Builder
	section := func(title, body string) {
		b.WriteString(headerStyle.Render(title))
		b.WriteString("\n")
		b.WriteString(contentStyle.Render(body))
		b.WriteString("\n\n")
	}
	list := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		lines := make([]string, len(items))
		for i, item := range items {
			lines[i] = "• " + item
		}
		section(title, strings.Join(lines, "\n"))
	}

	if r.Transcript != "" {
		section("Transcript", r.Transcript)
	}
	section("Session Summary", r.Summary)
	section("Clinical Notes", r.Notes)
	list("Key Points", r.KeyPoints)
	list("Themes", r.Themes)
	list("Recommendations", r.Recommendations)

	if r.HasDownload() {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("Summary ID: %s (use `download %s` to save the PDF)", r.ID, r.ID)))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FileSize 文档大小，以 KB 显示
func FileSize(size int64) string {
	return humanize.FormatFloat("#,###.##", float64(size)/1024) + " KB"
}

// AudioSize 音频大小，以 MB 显示
func AudioSize(size int64) string {
	return humanize.FormatFloat("#,###.##", float64(size)/(1024*1024)) + " MB"
}

// FileAttachment 已选择的文档
func FileAttachment(att *api.Attachment) string {
	if att == nil {
		return ""
	}
	return fmt.Sprintf("%s (%s)", att.Name, FileSize(att.Size))
}

// AudioAttachment 已选择的音频
func AudioAttachment(att *api.Attachment) string {
	if att == nil {
		return ""
	}
	return fmt.Sprintf("%s (%s)", att.Name, AudioSize(att.Size))
}

// CharCount 文本输入的字符数
func CharCount(text string) string {
	n := utf8.RuneCountInString(text)
	return mutedStyle.Render(humanize.Comma(int64(n)) + " characters")
}

// ErrorBanner 错误提示
func ErrorBanner(message string) string {
	if message == "" {
		return ""
	}
	return errorStyle.Render(message)
}
