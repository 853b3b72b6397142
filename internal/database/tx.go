package database

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"
)

const (
	defaultTxMaxAttempts  = 5
	defaultTxBaseDelay    = 10 * time.Millisecond
	defaultTxJitterFactor = 0.3
)

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// TxFunc はトランザクション内で実行される処理。
// エラーを返すとトランザクションはロールバックされる。
type TxFunc func(ctx context.Context, tx *sql.Tx) error

// TxRunner はトランザクションの開始・コミット・ロールバックと、
// シリアライゼーション失敗時の再試行を一箇所にまとめる。
type TxRunner struct {
	db          TxBeginner
	maxAttempts int
	baseDelay   time.Duration
	onRetry     func(attempt int, err error)
}

// TxOption はTxRunnerの設定を変更する。
type TxOption func(*TxRunner)

// WithMaxAttempts は最大試行回数を設定する。1未満の値は無視する。
func WithMaxAttempts(n int) TxOption {
	return func(r *TxRunner) {
		if n >= 1 {
			r.maxAttempts = n
		}
	}
}

// WithBaseDelay は初回再試行までの待機時間を設定する。
func WithBaseDelay(d time.Duration) TxOption {
	return func(r *TxRunner) {
		if d >= 0 {
			r.baseDelay = d
		}
	}
}

// WithRetryHook は再試行のたびに呼ばれるコールバックを設定する。メトリクス記録用。
func WithRetryHook(fn func(attempt int, err error)) TxOption {
	return func(r *TxRunner) {
		r.onRetry = fn
	}
}

// NewTxRunner はTxRunnerを生成する。
func NewTxRunner(db TxBeginner, opts ...TxOption) *TxRunner {
	r := &TxRunner{
		db:          db,
		maxAttempts: defaultTxMaxAttempts,
		baseDelay:   defaultTxBaseDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run はfnを1つのトランザクション内で実行する。
// fnが成功すればコミットし、失敗すればロールバックしてfnのエラーをそのまま返す。
// シリアライゼーション失敗（40001）とデッドロック（40P01）の場合はトランザクション全体を
// 指数バックオフで再試行する。それ以外のエラーは即座に返す。
func (r *TxRunner) Run(ctx context.Context, fn TxFunc) error {
	var lastErr error

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := r.baseDelay * time.Duration(1<<(attempt-1))
			jitter := time.Duration(rand.Float64() * float64(delay) * defaultTxJitterFactor) //nolint:gosec
			if r.onRetry != nil {
				r.onRetry(attempt, lastErr)
			}

			select {
			case <-time.After(delay + jitter):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = r.runOnce(ctx, fn)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("transaction failed after %d attempts: %w", r.maxAttempts, lastErr)
}

func (r *TxRunner) runOnce(ctx context.Context, fn TxFunc) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
