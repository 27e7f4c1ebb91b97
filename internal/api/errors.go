package api

import (
	"errors"
	"fmt"
)

// RequestFailedError 后端返回非 2xx 状态码，响应体不做解析
type RequestFailedError struct {
	Op         Op
	Status     int
	StatusText string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("%s 请求失败: %d %s", e.Op, e.Status, e.StatusText)
}

// NetworkError 传输层失败：DNS、连接重置、超时、取消等
type NetworkError struct {
	Op  Op
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s 网络错误: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// SchemaError 响应体与约定的结构不符
type SchemaError struct {
	Op  Op
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s 响应格式错误: %v", e.Op, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// IsRequestFailed 非 2xx 状态码或响应格式错误
func IsRequestFailed(err error) bool {
	var rf *RequestFailedError
	var se *SchemaError
	return errors.As(err, &rf) || errors.As(err, &se)
}

// IsNetworkError 传输层失败
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
