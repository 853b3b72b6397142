// Package model はドメインモデルを定義する。
package model

import "time"

// Book は蔵書1冊を表す。
// 1タイトルにつき1冊のみを扱い、複数コピーの在庫管理は行わない。
type Book struct {
	ID        string
	Title     string
	Category  string
	Status    BookStatus
	CreatedAt time.Time
}

// BookStatus は蔵書の貸出状態を表す。
type BookStatus string

const (
	// BookStatusAvailable は貸出可能な状態。
	BookStatusAvailable BookStatus = "available"
	// BookStatusIssued は貸出中の状態。
	// 未返却の貸出がちょうど1件存在する場合に限りこの状態になる。
	BookStatusIssued BookStatus = "issued"
)

// Valid はステータスが定義済みの値かどうかを返す。
func (s BookStatus) Valid() bool {
	return s == BookStatusAvailable || s == BookStatusIssued
}

// IsAvailable は蔵書が貸出可能かどうかを返す。
func (b *Book) IsAvailable() bool {
	return b.Status == BookStatusAvailable
}
