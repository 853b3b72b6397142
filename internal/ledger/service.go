// Package ledger は貸出台帳のドメインロジックを提供する。
//
// 本の貸出状態（available/issued）を変更するのはこのパッケージだけであり、
// 状態の変更は必ず貸出レコードの作成・クローズと同じトランザクション内で行う。
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bookloan/internal/metrics"
	"github.com/hitoshi/bookloan/internal/model"
	"github.com/hitoshi/bookloan/internal/repository"
)

const (
	// DefaultLoanPeriod は貸出期間のデフォルト値。
	DefaultLoanPeriod = 7 * day
	// DefaultPenaltyPerDay は延滞1日あたりの延滞金のデフォルト値（1.00）。
	DefaultPenaltyPerDay = model.Money(100)
)

// Config は貸出台帳の設定。
type Config struct {
	LoanPeriod    time.Duration
	PenaltyPerDay model.Money
}

// OpenLoan は貸出中一覧の1行。返却期限までの残り日数を持つ。
// Overdueは期限を1秒でも過ぎていればtrueで、DaysLeftが0の場合もある。
type OpenLoan struct {
	model.LoanWithBook
	DaysLeft int64
	Overdue  bool
}

// Service は貸出台帳のサービス層。
type Service struct {
	loans   repository.LoanRepository
	cfg     Config
	now     func() time.Time
	metrics metrics.MetricsCollector
}

// Option はServiceの設定を変更する。
type Option func(*Service)

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMetrics はメトリクスの記録先を設定する。
func WithMetrics(m metrics.MetricsCollector) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService はServiceの新しいインスタンスを生成する。
// LoanPeriodが0以下、PenaltyPerDayが負の場合はデフォルト値を使用する。
func NewService(loans repository.LoanRepository, cfg Config, opts ...Option) *Service {
	if cfg.LoanPeriod <= 0 {
		cfg.LoanPeriod = DefaultLoanPeriod
	}
	if cfg.PenaltyPerDay < 0 {
		cfg.PenaltyPerDay = DefaultPenaltyPerDay
	}
	s := &Service{
		loans: loans,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Borrow は本を貸し出す。
// 本の行をロックしてから状態を確認するため、同じ本への同時貸出は1件だけが成功し、
// 残りはNotAvailableErrorになる。失敗時はロールバックされ状態は変化しない。
func (s *Service) Borrow(ctx context.Context, title, patronID string) (*model.Loan, error) {
	if strings.TrimSpace(title) == "" {
		return nil, model.NewValidationError("book title is required")
	}
	if patronID == "" {
		return nil, model.NewValidationError("patron id is required")
	}
	if !isPatronID(patronID) {
		err := model.NewPatronNotFoundError(patronID)
		s.recordRejection(err)
		return nil, err
	}

	var loan *model.Loan
	err := s.loans.InTx(ctx, func(tx repository.LoanTx) error {
		book, err := tx.LockBookByTitle(ctx, title)
		if err != nil {
			return err
		}
		if book == nil {
			return model.NewBookNotFoundError(title)
		}
		if !book.IsAvailable() {
			return model.NewNotAvailableError(title)
		}

		if err := tx.SetBookStatus(ctx, book.ID, model.BookStatusIssued); err != nil {
			return err
		}

		now := s.now()
		l := &model.Loan{
			ID:       uuid.New().String(),
			BookID:   book.ID,
			PatronID: patronID,
			IssuedAt: now,
			DueAt:    now.Add(s.cfg.LoanPeriod),
		}
		switch err := tx.InsertLoan(ctx, l); {
		case errors.Is(err, repository.ErrOpenLoanExists):
			return model.NewNotAvailableError(title)
		case errors.Is(err, repository.ErrReferenceNotFound):
			return model.NewPatronNotFoundError(patronID)
		case err != nil:
			return err
		}
		loan = l
		return nil
	})
	if err != nil {
		s.recordRejection(err)
		return nil, model.AsStoreError(err)
	}

	if s.metrics != nil {
		s.metrics.RecordLoanOpened()
	}
	slog.InfoContext(ctx, "loan opened",
		slog.String("loan_id", loan.ID),
		slog.String("patron_id", patronID),
		slog.String("title", title),
		slog.Time("due_at", loan.DueAt),
	)
	return loan, nil
}

// Return は本を返却し、延滞金を確定する。
// 返却日時と延滞金は一度だけ設定され、本の状態は同じトランザクション内でavailableに戻る。
func (s *Service) Return(ctx context.Context, title, patronID string) (*model.Loan, error) {
	if strings.TrimSpace(title) == "" {
		return nil, model.NewValidationError("book title is required")
	}
	if patronID == "" {
		return nil, model.NewValidationError("patron id is required")
	}
	if !isPatronID(patronID) {
		err := model.NewNoOpenLoanError(title)
		s.recordRejection(err)
		return nil, err
	}

	var closed *model.Loan
	var daysLate int64
	err := s.loans.InTx(ctx, func(tx repository.LoanTx) error {
		loan, err := tx.LockOpenLoan(ctx, title, patronID)
		if err != nil {
			return err
		}
		if loan == nil {
			return model.NewNoOpenLoanError(title)
		}

		now := s.now()
		daysLate = DaysLate(loan.DueAt, now)
		penalty := s.cfg.PenaltyPerDay.Times(daysLate)

		switch err := tx.CloseLoan(ctx, loan.ID, now, penalty); {
		case errors.Is(err, repository.ErrLoanAlreadyClosed):
			return model.NewNoOpenLoanError(title)
		case err != nil:
			return err
		}
		if err := tx.SetBookStatus(ctx, loan.BookID, model.BookStatusAvailable); err != nil {
			return err
		}

		loan.ReturnedAt = &now
		loan.Penalty = penalty
		closed = loan
		return nil
	})
	if err != nil {
		s.recordRejection(err)
		return nil, model.AsStoreError(err)
	}

	if s.metrics != nil {
		s.metrics.RecordLoanClosed(int64(closed.Penalty), daysLate)
	}
	slog.InfoContext(ctx, "loan closed",
		slog.String("loan_id", closed.ID),
		slog.String("patron_id", patronID),
		slog.String("title", title),
		slog.Int64("days_late", daysLate),
		slog.String("penalty", closed.Penalty.String()),
	)
	return closed, nil
}

// History は利用者の全貸出を貸出日時の降順で返す。
func (s *Service) History(ctx context.Context, patronID string) ([]model.LoanWithBook, error) {
	if !isPatronID(patronID) {
		return []model.LoanWithBook{}, nil
	}
	loans, err := s.loans.ListByPatron(ctx, patronID)
	if err != nil {
		return nil, model.NewStoreError(err)
	}
	return loans, nil
}

// OpenLoans は利用者の未返却の貸出を返却期限の昇順で、残り日数付きで返す。
func (s *Service) OpenLoans(ctx context.Context, patronID string) ([]OpenLoan, error) {
	if !isPatronID(patronID) {
		return []OpenLoan{}, nil
	}
	loans, err := s.loans.ListOpenByPatron(ctx, patronID)
	if err != nil {
		return nil, model.NewStoreError(err)
	}
	now := s.now()
	result := make([]OpenLoan, len(loans))
	for i, l := range loans {
		result[i] = OpenLoan{
			LoanWithBook: l,
			DaysLeft:     DaysLeft(l.DueAt, now),
			Overdue:      l.DueAt.Before(now),
		}
	}
	return result, nil
}

// isPatronID は利用者IDとして解釈できるかを返す。
// UUIDでないIDの利用者は存在しないので、ストアに問い合わせずに判定できる。
func isPatronID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *Service) recordRejection(err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case model.IsCode(err, model.ErrCodeNotAvailable):
		s.metrics.RecordLoanRejected(metrics.ReasonNotAvailable)
	case model.IsCode(err, model.ErrCodeNoOpenLoan):
		s.metrics.RecordLoanRejected(metrics.ReasonNoOpenLoan)
	case model.IsCode(err, model.ErrCodeNotFound):
		s.metrics.RecordLoanRejected(metrics.ReasonNotFound)
	}
}
