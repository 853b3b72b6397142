package model

import "time"

// Loan は1回の貸出トランザクションを表す。
// ReturnedAtがnilの間は未返却（オープン）であり、返却時に一度だけ確定される。
type Loan struct {
	ID         string
	BookID     string
	PatronID   string
	IssuedAt   time.Time
	DueAt      time.Time
	ReturnedAt *time.Time
	Penalty    Money
}

// IsOpen は貸出が未返却かどうかを返す。
func (l *Loan) IsOpen() bool {
	return l.ReturnedAt == nil
}

// LoanWithBook は貸出と蔵書タイトルを結合したモデル。
// 履歴・貸出中一覧の表示用にbooksテーブルとJOINして取得される。
type LoanWithBook struct {
	Loan
	BookTitle    string
	BookCategory string
}
