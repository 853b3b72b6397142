package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/bookloan/internal/query"
)

// LoanServiceInterface は貸出・返却ハンドラーが必要とするサービスインターフェース。
type LoanServiceInterface interface {
	// Borrow は本を貸し出す。
	Borrow(ctx context.Context, title, patronID string) (*loanResponse, error)
	// Return は本を返却し、延滞金を確定する。
	Return(ctx context.Context, title, patronID string) (*loanResponse, error)
}

// LoanQueryInterface は利用者の貸出一覧表示に必要なサービスインターフェース。
type LoanQueryInterface interface {
	History(ctx context.Context, patronID string) ([]query.HistoryRow, error)
	OpenLoans(ctx context.Context, patronID string) ([]query.OpenLoanRow, error)
}

// LoanHandler は貸出台帳のHTTPハンドラー。
type LoanHandler struct {
	service LoanServiceInterface
	queries LoanQueryInterface
}

// NewLoanHandler はLoanHandlerを生成する。
func NewLoanHandler(service LoanServiceInterface, queries LoanQueryInterface) *LoanHandler {
	return &LoanHandler{service: service, queries: queries}
}

// loanResponse は貸出・返却結果のAPIレスポンス。
type loanResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	IssuedOn     string `json:"issued_on"`
	DueOn        string `json:"due_on"`
	ReturnedOn   string `json:"returned_on,omitempty"`
	DaysLate     int64  `json:"days_late"`
	Penalty      string `json:"penalty"`
	PenaltyMinor int64  `json:"penalty_minor"`
}

// Borrow は本の貸出を処理する。
// POST /api/books/{title}/borrow
func (h *LoanHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	patronID, ok := requirePatronID(w, r)
	if !ok {
		return
	}

	loan, err := h.service.Borrow(r.Context(), pathParam(r, "title"), patronID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

// Return は本の返却を処理する。
// POST /api/books/{title}/return
func (h *LoanHandler) Return(w http.ResponseWriter, r *http.Request) {
	patronID, ok := requirePatronID(w, r)
	if !ok {
		return
	}

	loan, err := h.service.Return(r.Context(), pathParam(r, "title"), patronID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// OpenLoans は利用者の貸出中一覧を返却期限の近い順で返す。
// GET /api/me/loans
func (h *LoanHandler) OpenLoans(w http.ResponseWriter, r *http.Request) {
	patronID, ok := requirePatronID(w, r)
	if !ok {
		return
	}

	rows, err := h.queries.OpenLoans(r.Context(), patronID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// History は利用者の貸出履歴を新しい順で返す。
// GET /api/me/history
func (h *LoanHandler) History(w http.ResponseWriter, r *http.Request) {
	patronID, ok := requirePatronID(w, r)
	if !ok {
		return
	}

	rows, err := h.queries.History(r.Context(), patronID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
