package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bookloan/internal/database"
	"github.com/hitoshi/bookloan/internal/model"
)

// PostgresReviewRepo はPostgreSQLを使用したレビューリポジトリ。
type PostgresReviewRepo struct {
	db *sql.DB
}

// NewPostgresReviewRepo はPostgresReviewRepoを生成する。
func NewPostgresReviewRepo(db *sql.DB) *PostgresReviewRepo {
	return &PostgresReviewRepo{db: db}
}

// Create はレビューを作成する。
func (r *PostgresReviewRepo) Create(ctx context.Context, review *model.Review) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (id, book_id, patron_id, review_text, rating, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		review.ID, review.BookID, review.PatronID, review.Text, review.Rating, review.CreatedAt,
	)
	if err == nil {
		return nil
	}
	if database.IsForeignKeyViolation(err) {
		return ErrReferenceNotFound
	}
	return fmt.Errorf("レビューの作成に失敗しました: %w", err)
}

// ListByBookTitle は本のレビューを投稿者名付きで作成日時の降順で返す。
func (r *PostgresReviewRepo) ListByBookTitle(ctx context.Context, title string) ([]model.ReviewWithPatron, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT rv.id, rv.book_id, rv.patron_id, rv.review_text, rv.rating, rv.created_at, p.name
		 FROM reviews rv
		 JOIN books b ON b.id = rv.book_id
		 JOIN patrons p ON p.id = rv.patron_id
		 WHERE b.title = $1
		 ORDER BY rv.created_at DESC, rv.id DESC`,
		title,
	)
	if err != nil {
		return nil, fmt.Errorf("レビュー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var reviews []model.ReviewWithPatron
	for rows.Next() {
		var rv model.ReviewWithPatron
		if err := rows.Scan(&rv.ID, &rv.BookID, &rv.PatronID, &rv.Text, &rv.Rating, &rv.CreatedAt, &rv.PatronName); err != nil {
			return nil, fmt.Errorf("レビュー行の読み取りに失敗しました: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("レビュー一覧の走査に失敗しました: %w", err)
	}
	return reviews, nil
}

// compile-time interface check
var _ ReviewRepository = (*PostgresReviewRepo)(nil)
