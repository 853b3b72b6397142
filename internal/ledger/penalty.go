package ledger

import (
	"time"

	"github.com/hitoshi/bookloan/internal/model"
)

const day = 24 * time.Hour

// DaysLate は返却期限から返却日時までの経過日数（切り捨て）を返す。
// 期限内の返却は0。
func DaysLate(due, returnedAt time.Time) int64 {
	late := returnedAt.Sub(due)
	if late <= 0 {
		return 0
	}
	return int64(late / day)
}

// Penalty は延滞日数に日額を掛けた延滞金を返す。
// 返却日時に対して単調非減少で、期限内の返却では常に0になる。
func Penalty(due, returnedAt time.Time, perDay model.Money) model.Money {
	return perDay.Times(DaysLate(due, returnedAt))
}

// DaysLeft は現在時刻から返却期限までの残り日数（切り上げ）を返す。
// 期限を過ぎている場合は負の値になる。
func DaysLeft(due, now time.Time) int64 {
	left := due.Sub(now)
	days := left / day
	// 整数除算は0方向に丸められるので、正の端数がある場合のみ繰り上げる
	if left%day > 0 {
		days++
	}
	return int64(days)
}
