package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/bookloan/internal/database"
	"github.com/hitoshi/bookloan/internal/model"
)

const loanWithBookColumns = `l.id, l.book_id, l.patron_id, l.issued_at, l.due_at, l.returned_at, l.penalty_amount,
	b.title, b.category`

// PostgresLoanRepo はPostgreSQLを使用した貸出台帳リポジトリ。
// 書き込みはすべてTxRunner経由のトランザクション内で行う。
type PostgresLoanRepo struct {
	db     *sql.DB
	runner *database.TxRunner
}

// NewPostgresLoanRepo はPostgresLoanRepoを生成する。
func NewPostgresLoanRepo(db *sql.DB, runner *database.TxRunner) *PostgresLoanRepo {
	if runner == nil {
		runner = database.NewTxRunner(db)
	}
	return &PostgresLoanRepo{db: db, runner: runner}
}

// InTx はfnを1つのトランザクション内で実行する。
// シリアライゼーション失敗とデッドロックの場合はfnごと再試行される。
func (r *PostgresLoanRepo) InTx(ctx context.Context, fn func(tx LoanTx) error) error {
	return r.runner.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return fn(&postgresLoanTx{tx: tx})
	})
}

// ListByPatron は利用者の全貸出を貸出日時の降順で返す。
func (r *PostgresLoanRepo) ListByPatron(ctx context.Context, patronID string) ([]model.LoanWithBook, error) {
	return r.query(ctx, "貸出履歴",
		`SELECT `+loanWithBookColumns+`
		 FROM loans l
		 JOIN books b ON b.id = l.book_id
		 WHERE l.patron_id = $1
		 ORDER BY l.issued_at DESC, l.id DESC`,
		patronID)
}

// ListOpenByPatron は利用者の未返却の貸出を返却期限の昇順で返す。
func (r *PostgresLoanRepo) ListOpenByPatron(ctx context.Context, patronID string) ([]model.LoanWithBook, error) {
	return r.query(ctx, "貸出中一覧",
		`SELECT `+loanWithBookColumns+`
		 FROM loans l
		 JOIN books b ON b.id = l.book_id
		 WHERE l.patron_id = $1 AND l.returned_at IS NULL
		 ORDER BY l.due_at ASC, l.id ASC`,
		patronID)
}

// CountOverdue はnow時点で返却期限を過ぎている未返却の貸出数を返す。
func (r *PostgresLoanRepo) CountOverdue(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM loans WHERE returned_at IS NULL AND due_at < $1`, now,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("延滞中の貸出数の取得に失敗しました: %w", err)
	}
	return n, nil
}

func (r *PostgresLoanRepo) query(ctx context.Context, what, query string, args ...any) ([]model.LoanWithBook, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%sの取得に失敗しました: %w", what, err)
	}
	defer rows.Close()

	var loans []model.LoanWithBook
	for rows.Next() {
		var l model.LoanWithBook
		var returnedAt sql.NullTime
		if err := rows.Scan(
			&l.ID, &l.BookID, &l.PatronID, &l.IssuedAt, &l.DueAt, &returnedAt, &l.Penalty,
			&l.BookTitle, &l.BookCategory,
		); err != nil {
			return nil, fmt.Errorf("%sの行の読み取りに失敗しました: %w", what, err)
		}
		if returnedAt.Valid {
			t := returnedAt.Time
			l.ReturnedAt = &t
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%sの走査に失敗しました: %w", what, err)
	}
	return loans, nil
}

// postgresLoanTx は*sql.Tx上でLoanTxを実装する。
type postgresLoanTx struct {
	tx *sql.Tx
}

// LockBookByTitle はSELECT ... FOR UPDATEで本の行をロックして取得する。
// 同じ本に対する並行した貸出・返却はここで直列化される。
func (t *postgresLoanTx) LockBookByTitle(ctx context.Context, title string) (*model.Book, error) {
	book := &model.Book{}
	err := t.tx.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE title = $1 FOR UPDATE`,
		title,
	).Scan(&book.ID, &book.Title, &book.Category, &book.Status, &book.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("本のロック取得に失敗しました: %w", err)
	}
	return book, nil
}

// SetBookStatus は本の貸出状態を更新する。
func (t *postgresLoanTx) SetBookStatus(ctx context.Context, bookID string, status model.BookStatus) error {
	result, err := t.tx.ExecContext(ctx,
		`UPDATE books SET status = $1 WHERE id = $2`,
		string(status), bookID,
	)
	if err != nil {
		return fmt.Errorf("本の状態更新に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if n == 0 {
		return ErrReferenceNotFound
	}
	return nil
}

// InsertLoan は未返却の貸出レコードを作成する。
// loans_one_open_per_book部分一意インデックスの違反はErrOpenLoanExistsに変換する。
func (t *postgresLoanTx) InsertLoan(ctx context.Context, loan *model.Loan) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO loans (id, book_id, patron_id, issued_at, due_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		loan.ID, loan.BookID, loan.PatronID, loan.IssuedAt, loan.DueAt,
	)
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err, "loans_one_open_per_book"):
		return ErrOpenLoanExists
	case database.IsForeignKeyViolation(err):
		return ErrReferenceNotFound
	default:
		return fmt.Errorf("貸出の作成に失敗しました: %w", err)
	}
}

// LockOpenLoan はタイトルと利用者IDに一致する未返却の貸出をロックして取得する。
func (t *postgresLoanTx) LockOpenLoan(ctx context.Context, title, patronID string) (*model.Loan, error) {
	loan := &model.Loan{}
	err := t.tx.QueryRowContext(ctx,
		`SELECT l.id, l.book_id, l.patron_id, l.issued_at, l.due_at, l.penalty_amount
		 FROM loans l
		 JOIN books b ON b.id = l.book_id
		 WHERE b.title = $1 AND l.patron_id = $2 AND l.returned_at IS NULL
		 FOR UPDATE OF l`,
		title, patronID,
	).Scan(&loan.ID, &loan.BookID, &loan.PatronID, &loan.IssuedAt, &loan.DueAt, &loan.Penalty)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("貸出のロック取得に失敗しました: %w", err)
	}
	return loan, nil
}

// CloseLoan は未返却の貸出に返却日時と延滞金を設定する。
func (t *postgresLoanTx) CloseLoan(ctx context.Context, loanID string, returnedAt time.Time, penalty model.Money) error {
	result, err := t.tx.ExecContext(ctx,
		`UPDATE loans SET returned_at = $1, penalty_amount = $2
		 WHERE id = $3 AND returned_at IS NULL`,
		returnedAt, int64(penalty), loanID,
	)
	if err != nil {
		return fmt.Errorf("貸出のクローズに失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if n == 0 {
		return ErrLoanAlreadyClosed
	}
	return nil
}

// compile-time interface check
var (
	_ LoanRepository = (*PostgresLoanRepo)(nil)
	_ LoanTx         = (*postgresLoanTx)(nil)
)
