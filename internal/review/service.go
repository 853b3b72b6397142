// Package review は蔵書レビューのドメインロジックを提供する。
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bookloan/internal/metrics"
	"github.com/hitoshi/bookloan/internal/model"
	"github.com/hitoshi/bookloan/internal/repository"
	"github.com/hitoshi/bookloan/internal/security"
)

const maxTextLength = 2000

// Service はレビューボードのサービス層。
// 本と利用者は参照のみで、貸出状態には一切触れない。
type Service struct {
	reviews   repository.ReviewRepository
	books     repository.BookRepository
	sanitizer security.TextSanitizer
	metrics   metrics.MetricsCollector
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilでもよい。
func NewService(
	reviews repository.ReviewRepository,
	books repository.BookRepository,
	sanitizer security.TextSanitizer,
	m metrics.MetricsCollector,
) *Service {
	return &Service{
		reviews:   reviews,
		books:     books,
		sanitizer: sanitizer,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit はレビューを投稿する。
// 本文はマークアップを除去した上で空でないこと、評価は1〜5であることを要求する。
// 過去の貸出の有無は問わず、同じ利用者が同じ本に複数回投稿してもよい。
func (s *Service) Submit(ctx context.Context, title, patronID, text string, rating int) (*model.Review, error) {
	clean := s.sanitizer.Sanitize(text)
	if clean == "" {
		return nil, model.NewValidationError("review text is required")
	}
	if len([]rune(clean)) > maxTextLength {
		return nil, model.NewValidationError(fmt.Sprintf("review text must be at most %d characters", maxTextLength))
	}
	if rating < model.MinRating || rating > model.MaxRating {
		return nil, model.NewValidationError(fmt.Sprintf("rating must be between %d and %d", model.MinRating, model.MaxRating))
	}
	// UUIDでないIDの利用者は存在しない
	if _, err := uuid.Parse(patronID); err != nil {
		return nil, model.NewValidationError("unknown patron")
	}

	book, err := s.books.FindByTitle(ctx, title)
	if err != nil {
		return nil, model.NewStoreError(err)
	}
	if book == nil {
		return nil, model.NewValidationError(fmt.Sprintf("unknown book: %s", title))
	}

	r := &model.Review{
		ID:        uuid.New().String(),
		BookID:    book.ID,
		PatronID:  patronID,
		Text:      clean,
		Rating:    rating,
		CreatedAt: s.now(),
	}
	if err := s.reviews.Create(ctx, r); err != nil {
		if errors.Is(err, repository.ErrReferenceNotFound) {
			return nil, model.NewValidationError("unknown patron")
		}
		return nil, model.NewStoreError(err)
	}

	if s.metrics != nil {
		s.metrics.RecordReviewSubmitted()
	}
	slog.InfoContext(ctx, "review submitted",
		slog.String("review_id", r.ID),
		slog.String("patron_id", patronID),
		slog.String("title", title),
		slog.Int("rating", rating),
	)
	return r, nil
}

// ListFor は本のレビューを新しい順に投稿者名付きで返す。
func (s *Service) ListFor(ctx context.Context, title string) ([]model.ReviewWithPatron, error) {
	book, err := s.books.FindByTitle(ctx, title)
	if err != nil {
		return nil, model.NewStoreError(err)
	}
	if book == nil {
		return nil, model.NewBookNotFoundError(title)
	}

	reviews, err := s.reviews.ListByBookTitle(ctx, title)
	if err != nil {
		return nil, model.NewStoreError(err)
	}
	return reviews, nil
}
