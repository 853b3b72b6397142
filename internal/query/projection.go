// Package query は表示用の読み取り専用プロジェクションを提供する。
// 状態を持たず、カタログ・貸出台帳・レビューの結果を整形するだけである。
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/bookloan/internal/ledger"
	"github.com/hitoshi/bookloan/internal/model"
)

const (
	dateLayout     = "2006-01-02"
	notReturned    = "Not Returned"
	starGlyph      = "★"
	availableLabel = "Available"
	issuedLabel    = "Issued"
)

// BookRow は蔵書一覧の1行。
type BookRow struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Status   string `json:"status"`
}

// HistoryRow は貸出履歴の1行。
type HistoryRow struct {
	Title      string `json:"title"`
	IssuedOn   string `json:"issued_on"`
	DueOn      string `json:"due_on"`
	ReturnedOn string `json:"returned_on"`
	Penalty    string `json:"penalty"`
}

// OpenLoanRow は貸出中一覧の1行。
type OpenLoanRow struct {
	Title     string `json:"title"`
	Category  string `json:"category"`
	IssuedOn  string `json:"issued_on"`
	DueOn     string `json:"due_on"`
	DaysLeft  int64  `json:"days_left"`
	Remaining string `json:"remaining"`
	Overdue   bool   `json:"overdue"`
}

// ReviewRow はレビュー一覧の1行。
type ReviewRow struct {
	PatronName string `json:"patron_name"`
	Rating     int    `json:"rating"`
	Stars      string `json:"stars"`
	Text       string `json:"text"`
	PostedOn   string `json:"posted_on"`
}

// BookDetail は本の詳細表示。レビューが0件の場合AverageRatingは0になる。
type BookDetail struct {
	Book          BookRow     `json:"book"`
	Reviews       []ReviewRow `json:"reviews"`
	ReviewCount   int         `json:"review_count"`
	AverageRating float64     `json:"average_rating"`
}

// BookRows は蔵書を一覧表示用の行に変換する。
func BookRows(books []*model.Book) []BookRow {
	rows := make([]BookRow, len(books))
	for i, b := range books {
		rows[i] = bookRow(b)
	}
	return rows
}

func bookRow(b *model.Book) BookRow {
	status := availableLabel
	if b.Status == model.BookStatusIssued {
		status = issuedLabel
	}
	return BookRow{Title: b.Title, Category: b.Category, Status: status}
}

// HistoryRows は貸出履歴を表示用の行に変換する。未返却の貸出は返却日を"Not Returned"とする。
func HistoryRows(loans []model.LoanWithBook) []HistoryRow {
	rows := make([]HistoryRow, len(loans))
	for i, l := range loans {
		returned := notReturned
		if l.ReturnedAt != nil {
			returned = formatDate(*l.ReturnedAt)
		}
		rows[i] = HistoryRow{
			Title:      l.BookTitle,
			IssuedOn:   formatDate(l.IssuedAt),
			DueOn:      formatDate(l.DueAt),
			ReturnedOn: returned,
			Penalty:    l.Penalty.String(),
		}
	}
	return rows
}

// OpenLoanRows は貸出中一覧を表示用の行に変換する。
func OpenLoanRows(loans []ledger.OpenLoan) []OpenLoanRow {
	rows := make([]OpenLoanRow, len(loans))
	for i, l := range loans {
		rows[i] = OpenLoanRow{
			Title:     l.BookTitle,
			Category:  l.BookCategory,
			IssuedOn:  formatDate(l.IssuedAt),
			DueOn:     formatDate(l.DueAt),
			DaysLeft:  l.DaysLeft,
			Remaining: fmt.Sprintf("%d days", l.DaysLeft),
			Overdue:   l.Overdue,
		}
	}
	return rows
}

// ReviewRows はレビューを表示用の行に変換する。
func ReviewRows(reviews []model.ReviewWithPatron) []ReviewRow {
	rows := make([]ReviewRow, len(reviews))
	for i, r := range reviews {
		rows[i] = ReviewRow{
			PatronName: r.PatronName,
			Rating:     r.Rating,
			Stars:      Stars(r.Rating),
			Text:       r.Text,
			PostedOn:   formatDate(r.CreatedAt),
		}
	}
	return rows
}

// Stars は評価を星の文字列で表す。範囲外の値は1〜5に丸める。
func Stars(rating int) string {
	rating = max(model.MinRating, min(rating, model.MaxRating))
	return strings.Repeat(starGlyph, rating)
}

// AverageRating はレビューの平均評価を小数第1位に丸めて返す。
func AverageRating(reviews []model.ReviewWithPatron) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	tenths := (sum*10*2 + len(reviews)) / (2 * len(reviews))
	return float64(tenths) / 10
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}
