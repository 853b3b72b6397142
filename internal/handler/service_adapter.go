package handler

import (
	"context"
	"time"

	"github.com/hitoshi/bookloan/internal/ledger"
	"github.com/hitoshi/bookloan/internal/model"
)

// LoanServiceAdapter は ledger.Service を LoanServiceInterface に適合させるアダプタ。
type LoanServiceAdapter struct {
	svc *ledger.Service
}

// NewLoanServiceAdapter はLoanServiceAdapterを生成する。
func NewLoanServiceAdapter(svc *ledger.Service) *LoanServiceAdapter {
	return &LoanServiceAdapter{svc: svc}
}

// Borrow は本を貸し出しhandlerレスポンス型で返す。
func (a *LoanServiceAdapter) Borrow(ctx context.Context, title, patronID string) (*loanResponse, error) {
	loan, err := a.svc.Borrow(ctx, title, patronID)
	if err != nil {
		return nil, err
	}
	resp := toLoanResponse(title, loan)
	return &resp, nil
}

// Return は本を返却しhandlerレスポンス型で返す。
func (a *LoanServiceAdapter) Return(ctx context.Context, title, patronID string) (*loanResponse, error) {
	loan, err := a.svc.Return(ctx, title, patronID)
	if err != nil {
		return nil, err
	}
	resp := toLoanResponse(title, loan)
	return &resp, nil
}

// toLoanResponse はドメインのLoanをhandlerのレスポンス型に変換する。
func toLoanResponse(title string, loan *model.Loan) loanResponse {
	resp := loanResponse{
		ID:           loan.ID,
		Title:        title,
		IssuedOn:     loan.IssuedAt.Format(time.DateOnly),
		DueOn:        loan.DueAt.Format(time.DateOnly),
		Penalty:      loan.Penalty.String(),
		PenaltyMinor: int64(loan.Penalty),
	}
	if loan.ReturnedAt != nil {
		resp.ReturnedOn = loan.ReturnedAt.Format(time.DateOnly)
		resp.DaysLate = ledger.DaysLate(loan.DueAt, *loan.ReturnedAt)
	}
	return resp
}
