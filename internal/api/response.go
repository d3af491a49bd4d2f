package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"freelanceDesk/internal/api/middleware"
	"freelanceDesk/internal/errcode"
	"freelanceDesk/internal/store"
)

const exposeDetailKey = "exposeErrorDetail"

// errorBody 是所有错误响应的统一格式。
type errorBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
	Detail  string            `json:"detail,omitempty"`
}

// errorDetailMiddleware 决定 500 响应是否携带内部错误信息，生产环境下不携带。
func errorDetailMiddleware(production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(exposeDetailKey, !production)
		c.Next()
	}
}

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, errorBody{Message: msg})
}

func NotFound(c *gin.Context, msg string) { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string) { Error(c, http.StatusConflict, msg) }

// Internal 返回 500，并在非生产环境附带错误明细。
func Internal(c *gin.Context, msg string, err error) {
	body := errorBody{Message: msg}
	if err != nil {
		middleware.LoggerFromContext(c).Error(msg, slog.Any("error", err))
		if c.GetBool(exposeDetailKey) {
			body.Detail = err.Error()
		}
	}
	c.JSON(http.StatusInternalServerError, body)
}

// respondError 把业务错误映射为 HTTP 响应。
func respondError(c *gin.Context, err error) {
	if e, ok := errcode.As(err); ok {
		switch e.Kind {
		case errcode.Internal, errcode.Upstream:
			Internal(c, e.Message, err)
		default:
			c.JSON(e.HTTPStatus(), errorBody{Message: e.Message, Errors: e.Fields})
		}
		return
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		NotFound(c, "resource not found")
	case errors.Is(err, store.ErrClientHasProjects):
		Conflict(c, "client still has projects")
	default:
		Internal(c, "internal server error", err)
	}
}

var registerTagNameOnce sync.Once

// useJSONFieldNames 让校验错误使用 JSON 字段名。
func useJSONFieldNames() {
	registerTagNameOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
}

// bindJSON 解析请求体，失败时返回带字段明细的校验错误。
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = describeFieldError(fe)
		}
		return errcode.InvalidFields("validation failed", fields)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return errcode.Invalid(typeErr.Field, fmt.Sprintf("must be %s", typeErr.Type.String()))
	}
	if errors.Is(err, io.EOF) {
		return errcode.InvalidFields("request body is required", nil)
	}
	return errcode.InvalidFields("invalid request body: "+err.Error(), nil)
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed on " + fe.Tag()
	}
}

// parseID 解析路径中的数字 ID。
func parseID(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errcode.Invalid(name, "invalid id")
	}
	return uint(id), nil
}
