package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/bookloan/internal/model"
)

const bookColumns = `id, title, category, status, created_at`

// PostgresBookRepo はPostgreSQLを使用した蔵書リポジトリ。
type PostgresBookRepo struct {
	db *sql.DB
}

// NewPostgresBookRepo はPostgresBookRepoを生成する。
func NewPostgresBookRepo(db *sql.DB) *PostgresBookRepo {
	return &PostgresBookRepo{db: db}
}

// FindByTitle はタイトル完全一致で本を取得する。見つからない場合はnilを返す。
func (r *PostgresBookRepo) FindByTitle(ctx context.Context, title string) (*model.Book, error) {
	book := &model.Book{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE title = $1`,
		title,
	).Scan(&book.ID, &book.Title, &book.Category, &book.Status, &book.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("本の取得に失敗しました: %w", err)
	}
	return book, nil
}

// ListAll は全蔵書をタイトル順で返す。
func (r *PostgresBookRepo) ListAll(ctx context.Context) ([]*model.Book, error) {
	return r.query(ctx, "蔵書一覧",
		`SELECT `+bookColumns+` FROM books ORDER BY title ASC`)
}

// ListAvailable は貸出可能な本をタイトル順で返す。
func (r *PostgresBookRepo) ListAvailable(ctx context.Context) ([]*model.Book, error) {
	return r.query(ctx, "貸出可能な本の一覧",
		`SELECT `+bookColumns+` FROM books WHERE status = $1 ORDER BY title ASC`,
		string(model.BookStatusAvailable))
}

// Search はタイトルまたはカテゴリに対する部分一致検索を行う。
// LIKEのワイルドカード文字は検索語中ではリテラルとして扱う。
func (r *PostgresBookRepo) Search(ctx context.Context, term string) ([]*model.Book, error) {
	if term == "" {
		return r.ListAll(ctx)
	}
	pattern := "%" + escapeLike(term) + "%"
	return r.query(ctx, "蔵書の検索",
		`SELECT `+bookColumns+` FROM books
		 WHERE title ILIKE $1 ESCAPE '\' OR category ILIKE $1 ESCAPE '\'
		 ORDER BY title ASC`,
		pattern)
}

// ListByCategory は指定カテゴリの本をタイトル順で返す。
func (r *PostgresBookRepo) ListByCategory(ctx context.Context, category string) ([]*model.Book, error) {
	return r.query(ctx, "カテゴリ別の本の一覧",
		`SELECT `+bookColumns+` FROM books WHERE category = $1 ORDER BY title ASC`,
		category)
}

// ListCategories は重複を除いたカテゴリ名を昇順で返す。
func (r *PostgresBookRepo) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT category FROM books ORDER BY category ASC`)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("カテゴリ行の読み取りに失敗しました: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の走査に失敗しました: %w", err)
	}
	return categories, nil
}

// InsertIfAbsent は同じタイトルの本が存在しない場合のみ登録する。
func (r *PostgresBookRepo) InsertIfAbsent(ctx context.Context, book *model.Book) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO books (id, title, category, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (title) DO NOTHING`,
		book.ID, book.Title, book.Category, string(book.Status), book.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("本の登録に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("登録結果の取得に失敗しました: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresBookRepo) query(ctx context.Context, what, query string, args ...any) ([]*model.Book, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%sの取得に失敗しました: %w", what, err)
	}
	defer rows.Close()

	var books []*model.Book
	for rows.Next() {
		b := &model.Book{}
		if err := rows.Scan(&b.ID, &b.Title, &b.Category, &b.Status, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("%sの行の読み取りに失敗しました: %w", what, err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%sの走査に失敗しました: %w", what, err)
	}
	return books, nil
}

// escapeLike はLIKEパターン中の特殊文字をエスケープする。
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// compile-time interface check
var _ BookRepository = (*PostgresBookRepo)(nil)
