package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/bookloan/internal/middleware"
	"github.com/hitoshi/bookloan/internal/model"
	"github.com/hitoshi/bookloan/internal/query"
)

// --- モック定義 ---

type mockPatronService struct {
	resolveFn func(ctx context.Context, name, contact string) (*model.Patron, error)
}

func (m *mockPatronService) Resolve(ctx context.Context, name, contact string) (*model.Patron, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, name, contact)
	}
	return nil, nil
}

type mockCatalogService struct {
	listAvailableFn  func(ctx context.Context) ([]*model.Book, error)
	searchFn         func(ctx context.Context, term string) ([]*model.Book, error)
	listCategoriesFn func(ctx context.Context) ([]string, error)
	listByCategoryFn func(ctx context.Context, category string) ([]*model.Book, error)
}

func (m *mockCatalogService) ListAvailable(ctx context.Context) ([]*model.Book, error) {
	if m.listAvailableFn != nil {
		return m.listAvailableFn(ctx)
	}
	return nil, nil
}

func (m *mockCatalogService) Search(ctx context.Context, term string) ([]*model.Book, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, term)
	}
	return nil, nil
}

func (m *mockCatalogService) ListCategories(ctx context.Context) ([]string, error) {
	if m.listCategoriesFn != nil {
		return m.listCategoriesFn(ctx)
	}
	return nil, nil
}

func (m *mockCatalogService) ListByCategory(ctx context.Context, category string) ([]*model.Book, error) {
	if m.listByCategoryFn != nil {
		return m.listByCategoryFn(ctx, category)
	}
	return nil, nil
}

type mockBookDetailService struct {
	bookDetailFn func(ctx context.Context, title string) (*query.BookDetail, error)
}

func (m *mockBookDetailService) BookDetail(ctx context.Context, title string) (*query.BookDetail, error) {
	if m.bookDetailFn != nil {
		return m.bookDetailFn(ctx, title)
	}
	return nil, model.NewBookNotFoundError(title)
}

type mockLoanService struct {
	borrowFn func(ctx context.Context, title, patronID string) (*loanResponse, error)
	returnFn func(ctx context.Context, title, patronID string) (*loanResponse, error)
}

func (m *mockLoanService) Borrow(ctx context.Context, title, patronID string) (*loanResponse, error) {
	if m.borrowFn != nil {
		return m.borrowFn(ctx, title, patronID)
	}
	return &loanResponse{Title: title}, nil
}

func (m *mockLoanService) Return(ctx context.Context, title, patronID string) (*loanResponse, error) {
	if m.returnFn != nil {
		return m.returnFn(ctx, title, patronID)
	}
	return &loanResponse{Title: title}, nil
}

type mockLoanQueries struct {
	historyFn   func(ctx context.Context, patronID string) ([]query.HistoryRow, error)
	openLoansFn func(ctx context.Context, patronID string) ([]query.OpenLoanRow, error)
}

func (m *mockLoanQueries) History(ctx context.Context, patronID string) ([]query.HistoryRow, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, patronID)
	}
	return []query.HistoryRow{}, nil
}

func (m *mockLoanQueries) OpenLoans(ctx context.Context, patronID string) ([]query.OpenLoanRow, error) {
	if m.openLoansFn != nil {
		return m.openLoansFn(ctx, patronID)
	}
	return []query.OpenLoanRow{}, nil
}

type mockReviewService struct {
	submitFn func(ctx context.Context, title, patronID, text string, rating int) (*model.Review, error)
}

func (m *mockReviewService) Submit(ctx context.Context, title, patronID, text string, rating int) (*model.Review, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, title, patronID, text, rating)
	}
	return &model.Review{Text: text, Rating: rating}, nil
}

type mockReviewQueries struct {
	reviewsFn func(ctx context.Context, title string) ([]query.ReviewRow, error)
}

func (m *mockReviewQueries) Reviews(ctx context.Context, title string) ([]query.ReviewRow, error) {
	if m.reviewsFn != nil {
		return m.reviewsFn(ctx, title)
	}
	return []query.ReviewRow{}, nil
}

// --- テストヘルパー ---

// withPatronID はテスト用にリクエストコンテキストに利用者IDを注入するヘルパー。
func withPatronID(r *http.Request, patronID string) *http.Request {
	return r.WithContext(middleware.ContextWithPatronID(r.Context(), patronID))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}
