package lifecycle

import "time"

// Label 是项目的展示标签。
type Label string

const (
	LabelPaid           Label = "Paid"
	LabelPendingPayment Label = "Pending payment"
	LabelOverdue        Label = "Overdue"
	LabelInProgress     Label = "In Progress"
	LabelInvoiceSent    Label = "Invoice sent"
	LabelToBeDelivered  Label = "To be delivered"
	LabelMakeInvoice    Label = "Make invoice"
)

// Mode 决定标签推导策略。
type Mode int

const (
	// ModeExclusive 用于列表/看板：按优先级命中第一条规则即停止，最多一个标签。
	ModeExclusive Mode = iota
	// ModeAccumulating 用于项目详情：多个标签可以同时出现。
	ModeAccumulating
)

// Labels 推导项目的展示标签。两种视图共用这一份规则。
func Labels(s State, now time.Time, mode Mode) []Label {
	if mode == ModeAccumulating {
		return accumulatingLabels(s, now)
	}
	return exclusiveLabels(s, now)
}

func exclusiveLabels(s State, now time.Time) []Label {
	switch {
	case s.Paid():
		return []Label{LabelPaid}
	case s.InvoiceSent && s.Status == StatusDelivered:
		return []Label{LabelPendingPayment}
	case s.Status == StatusInProgress && deadlinePassed(s.Deadline, now):
		return []Label{LabelOverdue}
	case s.Status == StatusInProgress:
		return []Label{LabelInProgress}
	}
	return []Label{}
}

func accumulatingLabels(s State, now time.Time) []Label {
	labels := make([]Label, 0, 3)
	paid := s.Paid()

	if s.InvoiceSent {
		labels = append(labels, LabelInvoiceSent)
	}
	if paid {
		labels = append(labels, LabelPaid)
	}
	active := s.Status == StatusInProgress && !paid
	if active && deadlinePassed(s.Deadline, now) {
		labels = append(labels, LabelOverdue)
	}
	if !paid && deadlineToday(s.Deadline, now) {
		labels = append(labels, LabelToBeDelivered)
	}
	if active && !deadlinePassed(s.Deadline, now) && !deadlineToday(s.Deadline, now) {
		labels = append(labels, LabelInProgress)
	}
	if s.Status == StatusDelivered && !s.InvoiceSent && !paid {
		labels = append(labels, LabelMakeInvoice)
	}
	return labels
}

// calendarDay 取 t 在 loc 时区下的日期（零点）。
func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// deadlinePassed 判断截止日期是否早于今天（当天不算逾期）。
func deadlinePassed(deadline *time.Time, now time.Time) bool {
	if deadline == nil {
		return false
	}
	loc := now.Location()
	return calendarDay(*deadline, loc).Before(calendarDay(now, loc))
}

func deadlineToday(deadline *time.Time, now time.Time) bool {
	if deadline == nil {
		return false
	}
	loc := now.Location()
	return calendarDay(*deadline, loc).Equal(calendarDay(now, loc))
}
