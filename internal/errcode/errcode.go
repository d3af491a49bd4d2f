package errcode

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 表示错误分类，API 层据此映射 HTTP 状态码：
// - Validation：输入不合法或违反业务规则（400）
// - Unauthorized / Forbidden：缺少或错误的凭据（401 / 403）
// - NotFound：引用的实体不存在（404）
// - Conflict：存在依赖关系，无法执行（409）
// - Upstream：外部依赖调用失败（500，对外只暴露通用信息）
// - Unavailable：可选依赖未配置（503）
// - Internal：未预期错误（500）
type Kind int

const (
	Internal Kind = iota
	Validation
	Unauthorized
	Forbidden
	NotFound
	Conflict
	Upstream
	Unavailable
)

// Error 是携带分类与字段级明细的业务错误。
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// HTTPStatus 返回该错误对应的 HTTP 状态码。
func (e *Error) HTTPStatus() int {
	if e == nil {
		return http.StatusOK
	}
	switch e.Kind {
	case Validation:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Invalid 构造单字段的校验错误。
func Invalid(field, message string) *Error {
	return &Error{
		Kind:    Validation,
		Message: message,
		Fields:  map[string]string{field: message},
	}
}

// InvalidFields 构造多字段的校验错误，fields 为空时仅返回整体信息。
func InvalidFields(message string, fields map[string]string) *Error {
	return &Error{Kind: Validation, Message: message, Fields: fields}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: NotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: Conflict, Message: fmt.Sprintf(format, args...)}
}

// Wrap 将底层错误包装为指定分类。
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// As 从错误链中取出 *Error。
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is 判断错误链中是否存在指定分类的 *Error。
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
