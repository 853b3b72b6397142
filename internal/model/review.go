package model

import "time"

const (
	// MinRating は評価の最小値。
	MinRating = 1
	// MaxRating は評価の最大値。
	MaxRating = 5
)

// Review は蔵書に対するレビューを表す。作成後は変更されない。
type Review struct {
	ID        string
	BookID    string
	PatronID  string
	Text      string
	Rating    int
	CreatedAt time.Time
}

// ReviewWithPatron はレビューと投稿者の表示名を結合したモデル。
type ReviewWithPatron struct {
	Review
	PatronName string
}
