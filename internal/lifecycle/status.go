// Package lifecycle 计算项目的紧急度与展示标签，并校验状态组合。
// 包内全部为纯函数，当前时间由调用方传入。
package lifecycle

import (
	"strings"
	"time"

	"freelanceDesk/internal/errcode"
)

// Status 是项目的规范状态。
type Status string

const (
	StatusInProgress Status = "In Progress"
	StatusDelivered  Status = "Delivered"
	StatusPaid       Status = "Paid"
)

// Statuses 按业务顺序列出全部规范状态。
var Statuses = []Status{StatusInProgress, StatusDelivered, StatusPaid}

// ParseStatus 只接受三种规范状态。
// 旧前端里出现过的 New / Not started / Completed 一律视为非法输入。
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.TrimSpace(raw))
	for _, known := range Statuses {
		if s == known {
			return s, nil
		}
	}
	return "", errcode.Invalid("status", `status must be one of "In Progress", "Delivered", "Paid"`)
}

// State 是生命周期规则关心的项目字段。
type State struct {
	Status      Status
	InvoiceSent bool
	IsPaid      bool
	Deadline    *time.Time
}

// Paid 表示项目已结清（状态为 Paid 或已标记收款）。
func (s State) Paid() bool {
	return s.IsPaid || s.Status == StatusPaid
}

// ValidateState 校验状态组合：进行中的项目不允许已发送发票。
// 创建与更新共用此规则，违规时直接拒绝，不会替调用方改写字段。
func ValidateState(s State) error {
	if _, err := ParseStatus(string(s.Status)); err != nil {
		return err
	}
	if s.Status == StatusInProgress && s.InvoiceSent {
		return errcode.Invalid("invoiceSent", `invoice cannot be marked as sent while the project is "In Progress"`)
	}
	return nil
}

// DocumentKind 是可生成的文档类型。
type DocumentKind string

const (
	DocumentInvoice  DocumentKind = "invoice"
	DocumentContract DocumentKind = "contract"
)

// ParseDocumentKind 校验文档类型。
func ParseDocumentKind(raw string) (DocumentKind, error) {
	switch k := DocumentKind(strings.TrimSpace(raw)); k {
	case DocumentInvoice, DocumentContract:
		return k, nil
	default:
		return "", errcode.Invalid("type", `type must be "invoice" or "contract"`)
	}
}

// CheckDocument 判断当前项目状态下能否生成指定文档。
// 发票只允许为已交付、未开票、未收款的项目生成；合同不受限制。
func CheckDocument(kind DocumentKind, s State) error {
	switch kind {
	case DocumentContract:
		return nil
	case DocumentInvoice:
	default:
		return errcode.Invalid("type", `type must be "invoice" or "contract"`)
	}

	switch {
	case s.Paid():
		return errcode.Invalid("projectId", "invoice cannot be generated for a project that is already paid")
	case s.InvoiceSent:
		return errcode.Invalid("projectId", "invoice has already been sent for this project")
	case s.Status != StatusDelivered:
		return errcode.Invalid("projectId", `invoice can only be generated for projects with status "Delivered"`)
	}
	return nil
}
