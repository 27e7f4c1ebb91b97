package summarization

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fachebot/counsel-assist/internal/api"
)

// Kind 附件类别
type Kind string

const (
	KindFile  Kind = "file"
	KindAudio Kind = "audio"
)

// 可接受的文档格式：扩展名 -> MIME 类型
var documentFormats = map[string][]string{
	".txt":  {"text/plain"},
	".rtf":  {"application/rtf"},
	".pdf":  {"application/pdf"},
	".doc":  {"application/msword"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
}

// 可接受的音频格式：扩展名 -> MIME 类型
var audioFormats = map[string][]string{
	".mp3": {"audio/mpeg"},
	".wav": {"audio/wav"},
	".m4a": {"audio/m4a", "audio/x-m4a"},
	".ogg": {"audio/ogg"},
}

// UnsupportedFormatError 附件格式不在可接受列表中
type UnsupportedFormatError struct {
	Kind Kind
	Name string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("不支持的%s格式: %s (支持 %s)", kindLabel(e.Kind), e.Name, strings.Join(AcceptedExtensions(e.Kind), ", "))
}

func kindLabel(kind Kind) string {
	if kind == KindAudio {
		return "音频"
	}
	return "文件"
}

func formatsFor(kind Kind) map[string][]string {
	if kind == KindAudio {
		return audioFormats
	}
	return documentFormats
}

// AcceptedExtensions 返回可接受的扩展名，已排序
func AcceptedExtensions(kind Kind) []string {
	formats := formatsFor(kind)
	exts := make([]string, 0, len(formats))
	for ext := range formats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// MIMETypes 返回扩展名对应的 MIME 类型
func MIMETypes(kind Kind, ext string) []string {
	return formatsFor(kind)[strings.ToLower(ext)]
}

// ValidateAttachment 按扩展名检查附件格式
func ValidateAttachment(kind Kind, att *api.Attachment) error {
	if att == nil {
		return fmt.Errorf("%s为空", kindLabel(kind))
	}

	ext := att.Ext()
	if _, ok := formatsFor(kind)[ext]; !ok {
		return &UnsupportedFormatError{Kind: kind, Name: att.Name, Ext: ext}
	}
	return nil
}
