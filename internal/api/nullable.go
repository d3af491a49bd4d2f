package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Nullable 区分 PATCH 请求中字段“未提供”和“显式置空”。
type Nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// applyTo 仅在字段出现在请求中时覆盖 dst。
func (n Nullable[T]) applyTo(dst **T) {
	if n.Set {
		*dst = n.Value
	}
}

// flexTime 接受 RFC3339 时间或 YYYY-MM-DD 日期（按 UTC 零点解析）。
type flexTime time.Time

func (f *flexTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("time must be a string: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		*f = flexTime(t)
		return nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return fmt.Errorf("invalid time %q, want RFC3339 or YYYY-MM-DD", raw)
	}
	*f = flexTime(t)
	return nil
}

func (f *flexTime) timePtr() *time.Time {
	if f == nil {
		return nil
	}
	t := time.Time(*f)
	return &t
}
