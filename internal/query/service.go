package query

import (
	"context"

	"github.com/hitoshi/bookloan/internal/ledger"
	"github.com/hitoshi/bookloan/internal/model"
)

// BookFinder は本の検索のインターフェース。
type BookFinder interface {
	FindByTitle(ctx context.Context, title string) (*model.Book, error)
}

// ReviewLister はレビュー一覧のインターフェース。
type ReviewLister interface {
	ListFor(ctx context.Context, title string) ([]model.ReviewWithPatron, error)
}

// LoanLister は利用者の貸出一覧のインターフェース。
type LoanLister interface {
	History(ctx context.Context, patronID string) ([]model.LoanWithBook, error)
	OpenLoans(ctx context.Context, patronID string) ([]ledger.OpenLoan, error)
}

// Service は複数のサービスを組み合わせた読み取り専用の表示用ビューを提供する。
type Service struct {
	books   BookFinder
	reviews ReviewLister
	loans   LoanLister
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(books BookFinder, reviews ReviewLister, loans LoanLister) *Service {
	return &Service{books: books, reviews: reviews, loans: loans}
}

// BookDetail は本とそのレビュー、平均評価をまとめて返す。
func (s *Service) BookDetail(ctx context.Context, title string) (*BookDetail, error) {
	book, err := s.books.FindByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviews.ListFor(ctx, title)
	if err != nil {
		return nil, err
	}
	return &BookDetail{
		Book:          bookRow(book),
		Reviews:       ReviewRows(reviews),
		ReviewCount:   len(reviews),
		AverageRating: AverageRating(reviews),
	}, nil
}

// Reviews は本のレビューを表示用の行で返す。
func (s *Service) Reviews(ctx context.Context, title string) ([]ReviewRow, error) {
	reviews, err := s.reviews.ListFor(ctx, title)
	if err != nil {
		return nil, err
	}
	return ReviewRows(reviews), nil
}

// History は利用者の貸出履歴を表示用の行で返す。
func (s *Service) History(ctx context.Context, patronID string) ([]HistoryRow, error) {
	loans, err := s.loans.History(ctx, patronID)
	if err != nil {
		return nil, err
	}
	return HistoryRows(loans), nil
}

// OpenLoans は利用者の貸出中一覧を表示用の行で返す。
func (s *Service) OpenLoans(ctx context.Context, patronID string) ([]OpenLoanRow, error) {
	loans, err := s.loans.OpenLoans(ctx, patronID)
	if err != nil {
		return nil, err
	}
	return OpenLoanRows(loans), nil
}
