package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
)

type SubmitTextRequest struct {
	Text string `json:"text"`
}

// SummaryID 兼容后端返回字符串或数字形式的 id
type SummaryID string

func (id *SummaryID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*id = SummaryID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("无效的 id: %s", string(trimmed))
	}
	*id = SummaryID(n.String())
	return nil
}

// SummaryResponse 后端原始总结响应，缺失字段保持零值，由调用方规范化
type SummaryResponse struct {
	ID              SummaryID `json:"id"`
	Transcript      *string   `json:"transcript"`
	Summary         *string   `json:"summary"`
	Notes           *string   `json:"notes"`
	KeyPoints       []string  `json:"keyPoints"`
	Themes          []string  `json:"themes"`
	Recommendations []string  `json:"recommendations"`
}

// SubmitText 提交文本进行总结
func (c *Client) SubmitText(ctx context.Context, text string) (*SummaryResponse, error) {
	var resp SummaryResponse
	if err := c.postJSON(ctx, OpSubmitText, "/api/summarization/text", SubmitTextRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitFile 以 multipart 上传文档，字段名为 file
func (c *Client) SubmitFile(ctx context.Context, file *Attachment) (*SummaryResponse, error) {
	return c.submitMultipart(ctx, OpSubmitFile, "/api/summarization/file", "file", file)
}

// SubmitAudio 以 multipart 上传录音，字段名为 audio
func (c *Client) SubmitAudio(ctx context.Context, audio *Attachment) (*SummaryResponse, error) {
	return c.submitMultipart(ctx, OpSubmitAudio, "/api/summarization/audio", "audio", audio)
}

func (c *Client) submitMultipart(ctx context.Context, op Op, path, field string, att *Attachment) (*SummaryResponse, error) {
	if att == nil {
		return nil, fmt.Errorf("%s 缺少附件", op)
	}

	body, contentType, err := buildMultipart(field, att)
	if err != nil {
		return nil, fmt.Errorf("构造 %s 请求失败: %w", op, err)
	}

	var resp SummaryResponse
	err = c.call(ctx, request{
		op:          op,
		method:      http.MethodPost,
		path:        path,
		body:        body,
		contentType: contentType,
		decode: func(data []byte) error {
			return decodeObject(data, &resp)
		},
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// buildMultipart 读取附件并写入 multipart 表单，读取完成后立即关闭附件
func buildMultipart(field string, att *Attachment) ([]byte, string, error) {
	rc, err := att.Open()
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, escapeQuotes(att.Name)))
	h.Set("Content-Type", att.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, rc); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// DownloadPDF 下载已生成总结的 PDF，返回原始字节
func (c *Client) DownloadPDF(ctx context.Context, summaryID string) ([]byte, error) {
	if strings.TrimSpace(summaryID) == "" {
		return nil, errors.New("summaryID 不能为空")
	}

	var pdf []byte
	err := c.call(ctx, request{
		op:      OpDownloadPDF,
		method:  http.MethodGet,
		path:    "/api/summarization/download/" + url.PathEscape(summaryID),
		timeout: c.downloadTimeout,
		decode: func(data []byte) error {
			pdf = data
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return pdf, nil
}
