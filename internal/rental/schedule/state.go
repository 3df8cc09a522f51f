package schedule

import (
	"math"
	"time"
)

// State はダッシュボードに出す導出状態。保存はしない。
type State string

const (
	StateBuffer      State = "buffer"
	StateOnTime      State = "on_time"
	StateApproaching State = "approaching"
	StateOverdue     State = "overdue"
)

// StateOf は貸出1件の現在状態を導出する。
// 判定順序が仕様そのもの: 返却済み → buffer → overdue → approaching → on_time。
// warn > grace のとき approaching と overdue の窓が重なるため、順序を
// 入れ替えると結果が変わる。
func StateOf(now, bufferEndsAt, rentalEndsAt time.Time, returnedAt *time.Time, returned bool, cfg ParkConfig) State {
	if returned || returnedAt != nil {
		return StateOnTime
	}
	if now.Before(bufferEndsAt) {
		return StateBuffer
	}
	overdueAt := AddMinutes(rentalEndsAt, cfg.GraceMinutes)
	if !now.Before(overdueAt) {
		return StateOverdue
	}
	if !now.Before(AddMinutes(rentalEndsAt, -cfg.WarnBeforeEndMinutes)) {
		return StateApproaching
	}
	return StateOnTime
}

// roundMinutes: ミリ秒差を四捨五入で分に丸める（旧実装の Math.round と同じ）。
func roundMinutes(d time.Duration) int {
	return int(math.Round(float64(d.Milliseconds()) / 60000.0))
}

// MinutesOverdue は猶予超過後の経過分。境界（rentalEndsAt+grace）以前は0。
func MinutesOverdue(now, rentalEndsAt time.Time, cfg ParkConfig) int {
	overdueAt := AddMinutes(rentalEndsAt, cfg.GraceMinutes)
	if now.Before(overdueAt) {
		return 0
	}
	return roundMinutes(now.Sub(overdueAt))
}

// RemainingMinutes は返却期限までの残り分（負にはならない）。
func RemainingMinutes(now, rentalEndsAt time.Time) int {
	m := roundMinutes(rentalEndsAt.Sub(now))
	if m < 0 {
		return 0
	}
	return m
}

// ElapsedMinutes は貸出開始からの経過分。
func ElapsedMinutes(now, startedAt time.Time) int {
	return roundMinutes(now.Sub(startedAt))
}

// ReturnStatus は返却済み貸出の確定評価。now ではなく returnedAt で評価する
// （閉じた貸出の延滞は返却時点で固定される）。
type ReturnStatus struct {
	OnTime         bool `json:"on_time"`
	MinutesOverdue int  `json:"minutes_overdue"`
}

func ReturnStatusOf(rentalEndsAt, returnedAt time.Time, cfg ParkConfig) ReturnStatus {
	overdueAt := AddMinutes(rentalEndsAt, cfg.GraceMinutes)
	if returnedAt.Before(overdueAt) {
		return ReturnStatus{OnTime: true}
	}
	return ReturnStatus{OnTime: false, MinutesOverdue: roundMinutes(returnedAt.Sub(overdueAt))}
}

// Rank はダッシュボード並びの主キー。小さいほど上に出す。
func Rank(s State) int {
	switch s {
	case StateOverdue:
		return 0
	case StateApproaching:
		return 1
	case StateOnTime:
		return 2
	case StateBuffer:
		return 3
	default:
		return 4
	}
}
