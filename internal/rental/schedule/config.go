// Package schedule は貸出の時間ルールを純関数で実装する。
// 「いまどの状態か」は常に保存済みタイムスタンプと now の比較で導出し、
// タイマーやバッチで状態を書き込むことはしない。
// now は必ず引数で渡す。time.Now() を読むのは呼び出しの最外周だけ。
package schedule

import "time"

// ParkConfig はパーク全体で1つの時間設定（全て分、非負）。
type ParkConfig struct {
	BufferMinutes         int `json:"buffer_minutes"`
	RentalDurationMinutes int `json:"rental_duration_minutes"`
	GraceMinutes          int `json:"grace_minutes"`
	WarnBeforeEndMinutes  int `json:"warn_before_end_minutes"`
}

// DefaultParkConfig は設定レコードが無いときの唯一の既定値。
// 猶予は10分（旧実装には5分と10分の二重定義があったが、実際に設定読み出し
// 経路が使っていた10分に揃えた）。
var DefaultParkConfig = ParkConfig{
	BufferMinutes:         5,
	RentalDurationMinutes: 120,
	GraceMinutes:          10,
	WarnBeforeEndMinutes:  15,
}

// AddMinutes は n 分後（n は負も可）の時刻を返す。
func AddMinutes(t time.Time, n int) time.Time {
	return t.Add(time.Duration(n) * time.Minute)
}
