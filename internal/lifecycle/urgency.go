package lifecycle

import (
	"math"
	"slices"
	"time"
)

// 紧急度哨兵值，分数越小越紧急。
const (
	ScorePaid       = math.MaxInt
	ScoreDelivered  = math.MaxInt - 1
	ScoreNoDeadline = math.MaxInt - 2
)

const day = int64(24 * time.Hour)

// UrgencyScore 返回项目的紧急度分数。
// 有截止日期时为距截止的天数（向上取整，可为负，负值表示已逾期）。
func UrgencyScore(s State, now time.Time) int {
	switch {
	case s.Paid():
		return ScorePaid
	case s.Status == StatusDelivered:
		return ScoreDelivered
	case s.Deadline == nil:
		return ScoreNoDeadline
	}
	return ceilDays(s.Deadline.Sub(now))
}

// ceilDays 对 d/24h 向上取整。整数除法向零截断，负数截断即向上取整。
func ceilDays(d time.Duration) int {
	ns := int64(d)
	q := ns / day
	if ns > 0 && ns%day != 0 {
		q++
	}
	return int(q)
}

// SortByUrgency 按紧急度升序稳定排序，分数相同保持原有顺序。
func SortByUrgency[T any](items []T, state func(T) State, now time.Time) {
	slices.SortStableFunc(items, func(a, b T) int {
		sa, sb := UrgencyScore(state(a), now), UrgencyScore(state(b), now)
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		default:
			return 0
		}
	})
}
