package api

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// Attachment 待上传的文件句柄，仅在构造请求时打开
type Attachment struct {
	Name        string
	Size        int64
	ContentType string
	open        func() (io.ReadCloser, error)
}

// NewFileAttachment 引用本地文件
func NewFileAttachment(path string) (*Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s 不是普通文件", path)
	}

	name := filepath.Base(path)
	return &Attachment{
		Name:        name,
		Size:        info.Size(),
		ContentType: contentTypeFor(name),
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// NewBytesAttachment 使用内存中的数据
func NewBytesAttachment(name string, data []byte) *Attachment {
	return &Attachment{
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentTypeFor(name),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Ext 小写扩展名，包含前导点
func (a *Attachment) Ext() string {
	return strings.ToLower(filepath.Ext(a.Name))
}

// Open 打开附件内容，调用方负责关闭
func (a *Attachment) Open() (io.ReadCloser, error) {
	if a == nil || a.open == nil {
		return nil, fmt.Errorf("附件不可读")
	}
	return a.open()
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
