package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freelanceDesk/internal/errcode"
)

var now = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestUrgencyScore(t *testing.T) {
	cases := []struct {
		name  string
		state State
		want  int
	}{
		{name: "paid status", state: State{Status: StatusPaid, Deadline: at(-72 * time.Hour)}, want: ScorePaid},
		{name: "paid flag wins over in progress", state: State{Status: StatusInProgress, IsPaid: true}, want: ScorePaid},
		{name: "delivered", state: State{Status: StatusDelivered, Deadline: at(-24 * time.Hour)}, want: ScoreDelivered},
		{name: "no deadline", state: State{Status: StatusInProgress}, want: ScoreNoDeadline},
		{name: "exactly two days ahead", state: State{Status: StatusInProgress, Deadline: at(48 * time.Hour)}, want: 2},
		{name: "partial day rounds up", state: State{Status: StatusInProgress, Deadline: at(25 * time.Hour)}, want: 2},
		{name: "one hour ahead", state: State{Status: StatusInProgress, Deadline: at(time.Hour)}, want: 1},
		{name: "deadline now", state: State{Status: StatusInProgress, Deadline: at(0)}, want: 0},
		{name: "half a day overdue", state: State{Status: StatusInProgress, Deadline: at(-12 * time.Hour)}, want: 0},
		{name: "three days overdue", state: State{Status: StatusInProgress, Deadline: at(-72 * time.Hour)}, want: -3},
		{name: "three and a half days overdue", state: State{Status: StatusInProgress, Deadline: at(-84 * time.Hour)}, want: -3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, UrgencyScore(tc.state, now))
			// 纯函数：重复调用结果一致
			assert.Equal(t, UrgencyScore(tc.state, now), UrgencyScore(tc.state, now))
		})
	}
}

func TestSortByUrgency(t *testing.T) {
	type project struct {
		name  string
		state State
	}
	items := []project{
		{"paid", State{Status: StatusPaid}},
		{"no-deadline", State{Status: StatusInProgress}},
		{"delivered", State{Status: StatusDelivered, Deadline: at(-100 * time.Hour)}},
		{"in-five-days", State{Status: StatusInProgress, Deadline: at(5 * 24 * time.Hour)}},
		{"flag-paid", State{Status: StatusInProgress, IsPaid: true, Deadline: at(-200 * time.Hour)}},
		{"overdue", State{Status: StatusInProgress, Deadline: at(-48 * time.Hour)}},
		{"tomorrow", State{Status: StatusInProgress, Deadline: at(20 * time.Hour)}},
	}

	SortByUrgency(items, func(p project) State { return p.state }, now)

	names := make([]string, 0, len(items))
	for _, p := range items {
		names = append(names, p.name)
	}
	assert.Equal(t, []string{"overdue", "tomorrow", "in-five-days", "no-deadline", "delivered", "paid", "flag-paid"}, names)
}

func TestLabelsExclusive(t *testing.T) {
	cases := []struct {
		name  string
		state State
		want  []Label
	}{
		{name: "paid flag beats everything", state: State{Status: StatusInProgress, IsPaid: true, InvoiceSent: true, Deadline: at(-96 * time.Hour)}, want: []Label{LabelPaid}},
		{name: "paid status", state: State{Status: StatusPaid}, want: []Label{LabelPaid}},
		{name: "invoiced delivery awaits payment", state: State{Status: StatusDelivered, InvoiceSent: true}, want: []Label{LabelPendingPayment}},
		{name: "overdue in progress", state: State{Status: StatusInProgress, Deadline: at(-48 * time.Hour)}, want: []Label{LabelOverdue}},
		{name: "deadline today is not overdue", state: State{Status: StatusInProgress, Deadline: at(-11 * time.Hour)}, want: []Label{LabelInProgress}},
		{name: "in progress without deadline", state: State{Status: StatusInProgress}, want: []Label{LabelInProgress}},
		{name: "delivered without invoice and past deadline", state: State{Status: StatusDelivered, Deadline: at(-24 * time.Hour)}, want: []Label{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Labels(tc.state, now, ModeExclusive)
			assert.Equal(t, tc.want, got)
			assert.LessOrEqual(t, len(got), 1)
		})
	}
}

func TestLabelsExclusiveAlwaysPaidWhenFlagged(t *testing.T) {
	deadlines := []*time.Time{nil, at(-100 * time.Hour), at(0), at(100 * time.Hour)}
	for _, status := range Statuses {
		for _, sent := range []bool{false, true} {
			for _, d := range deadlines {
				got := Labels(State{Status: status, InvoiceSent: sent, IsPaid: true, Deadline: d}, now, ModeExclusive)
				require.Equal(t, []Label{LabelPaid}, got)
			}
		}
	}
}

func TestLabelsAccumulating(t *testing.T) {
	cases := []struct {
		name  string
		state State
		want  []Label
	}{
		{name: "overdue", state: State{Status: StatusInProgress, Deadline: at(-48 * time.Hour)}, want: []Label{LabelOverdue}},
		{name: "due today", state: State{Status: StatusInProgress, Deadline: at(6 * time.Hour)}, want: []Label{LabelToBeDelivered}},
		{name: "future deadline", state: State{Status: StatusInProgress, Deadline: at(72 * time.Hour)}, want: []Label{LabelInProgress}},
		{name: "delivered not invoiced", state: State{Status: StatusDelivered}, want: []Label{LabelMakeInvoice}},
		{name: "delivered and invoiced", state: State{Status: StatusDelivered, InvoiceSent: true}, want: []Label{LabelInvoiceSent}},
		{name: "invoiced and paid", state: State{Status: StatusPaid, InvoiceSent: true, IsPaid: true}, want: []Label{LabelInvoiceSent, LabelPaid}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Labels(tc.state, now, ModeAccumulating))
		})
	}
}

func TestValidateState(t *testing.T) {
	err := ValidateState(State{Status: StatusInProgress, InvoiceSent: true})
	require.Error(t, err)
	assert.True(t, errcode.Is(err, errcode.Validation))
	e, _ := errcode.As(err)
	assert.Contains(t, e.Fields, "invoiceSent")

	assert.NoError(t, ValidateState(State{Status: StatusInProgress}))
	assert.NoError(t, ValidateState(State{Status: StatusDelivered, InvoiceSent: true}))
	assert.NoError(t, ValidateState(State{Status: StatusPaid, InvoiceSent: true, IsPaid: true}))
	assert.Error(t, ValidateState(State{Status: "Completed"}))
}

func TestParseStatusRejectsLegacyValues(t *testing.T) {
	for _, raw := range []string{"New", "Not started", "Completed", ""} {
		_, err := ParseStatus(raw)
		assert.Error(t, err, raw)
	}
	s, err := ParseStatus(" Delivered ")
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, s)
}

func TestCheckDocument(t *testing.T) {
	assert.Error(t, CheckDocument(DocumentInvoice, State{Status: StatusInProgress}))
	assert.NoError(t, CheckDocument(DocumentInvoice, State{Status: StatusDelivered}))
	assert.Error(t, CheckDocument(DocumentInvoice, State{Status: StatusDelivered, InvoiceSent: true}))
	assert.Error(t, CheckDocument(DocumentInvoice, State{Status: StatusDelivered, IsPaid: true}))
	assert.Error(t, CheckDocument(DocumentInvoice, State{Status: StatusPaid}))

	for _, status := range Statuses {
		assert.NoError(t, CheckDocument(DocumentContract, State{Status: status}))
	}

	err := CheckDocument(DocumentKind("quote"), State{Status: StatusDelivered})
	assert.True(t, errcode.Is(err, errcode.Validation))
}
