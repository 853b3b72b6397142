package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
)

// failingBeginner はBeginTxで常に指定エラーを返すTxBeginner。
type failingBeginner struct {
	err   error
	calls int
}

func (f *failingBeginner) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	f.calls++
	return nil, f.err
}

func TestTxRunner_RetriesSerializationFailure(t *testing.T) {
	b := &failingBeginner{err: &pq.Error{Code: "40001"}}
	var retries []int
	r := NewTxRunner(b,
		WithMaxAttempts(3),
		WithBaseDelay(time.Millisecond),
		WithRetryHook(func(attempt int, err error) { retries = append(retries, attempt) }),
	)

	err := r.Run(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		t.Fatal("fn must not run when BeginTx fails")
		return nil
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if !IsRetryable(err) {
		t.Errorf("final error should still carry the serialization failure, got %v", err)
	}
	if b.calls != 3 {
		t.Errorf("BeginTx calls = %d, want 3", b.calls)
	}
	if len(retries) != 2 || retries[0] != 1 || retries[1] != 2 {
		t.Errorf("retry hook attempts = %v, want [1 2]", retries)
	}
}

func TestTxRunner_DoesNotRetryOtherErrors(t *testing.T) {
	b := &failingBeginner{err: errors.New("connection refused")}
	r := NewTxRunner(b, WithMaxAttempts(5), WithBaseDelay(time.Millisecond))

	err := r.Run(context.Background(), func(ctx context.Context, tx *sql.Tx) error { return nil })
	if err == nil {
		t.Fatal("expected error")
	}
	if b.calls != 1 {
		t.Errorf("BeginTx calls = %d, want 1", b.calls)
	}
}

func TestTxRunner_StopsOnContextCancel(t *testing.T) {
	b := &failingBeginner{err: &pq.Error{Code: "40P01"}}
	r := NewTxRunner(b, WithMaxAttempts(5), WithBaseDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Run(ctx, func(ctx context.Context, tx *sql.Tx) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if b.calls != 1 {
		t.Errorf("BeginTx calls = %d, want 1", b.calls)
	}
}

func TestWithMaxAttempts_IgnoresNonPositive(t *testing.T) {
	r := NewTxRunner(nil, WithMaxAttempts(0))
	if r.maxAttempts != defaultTxMaxAttempts {
		t.Errorf("maxAttempts = %d, want %d", r.maxAttempts, defaultTxMaxAttempts)
	}
}

func TestErrorClassification(t *testing.T) {
	unique := &pq.Error{Code: "23505", Constraint: "loans_one_open_per_book"}
	if !IsUniqueViolation(unique, "loans_one_open_per_book") {
		t.Error("expected unique violation on named constraint")
	}
	if !IsUniqueViolation(unique, "") {
		t.Error("empty constraint should match any unique violation")
	}
	if IsUniqueViolation(unique, "patrons_contact_key") {
		t.Error("different constraint name should not match")
	}
	if !IsForeignKeyViolation(&pq.Error{Code: "23503"}) {
		t.Error("expected foreign key violation")
	}
	if !IsCheckViolation(&pq.Error{Code: "23514"}) {
		t.Error("expected check violation")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
}
