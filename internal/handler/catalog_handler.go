package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/bookloan/internal/model"
	"github.com/hitoshi/bookloan/internal/query"
)

// CatalogServiceInterface は蔵書ハンドラーが必要とするサービスインターフェース。
type CatalogServiceInterface interface {
	ListAvailable(ctx context.Context) ([]*model.Book, error)
	Search(ctx context.Context, term string) ([]*model.Book, error)
	ListCategories(ctx context.Context) ([]string, error)
	ListByCategory(ctx context.Context, category string) ([]*model.Book, error)
}

// BookDetailServiceInterface は本の詳細表示に必要なサービスインターフェース。
type BookDetailServiceInterface interface {
	BookDetail(ctx context.Context, title string) (*query.BookDetail, error)
}

// CatalogHandler は蔵書閲覧のHTTPハンドラー。
type CatalogHandler struct {
	catalog CatalogServiceInterface
	details BookDetailServiceInterface
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(catalog CatalogServiceInterface, details BookDetailServiceInterface) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, details: details}
}

// categoriesResponse はカテゴリ一覧のAPIレスポンス。
type categoriesResponse struct {
	Categories []string `json:"categories"`
}

// Search は蔵書を検索する。qが空の場合は全蔵書を返す。
// GET /api/books?q=
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	books, err := h.catalog.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, query.BookRows(books))
}

// ListAvailable は貸出可能な本の一覧を返す。
// GET /api/books/available
func (h *CatalogHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	books, err := h.catalog.ListAvailable(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, query.BookRows(books))
}

// GetBook は本の詳細をレビュー付きで返す。
// GET /api/books/{title}
func (h *CatalogHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	detail, err := h.details.BookDetail(r.Context(), pathParam(r, "title"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// ListCategories はカテゴリ一覧を返す。
// GET /api/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, categoriesResponse{Categories: categories})
}

// ListByCategory はカテゴリに属する本の一覧を返す。
// GET /api/categories/{category}/books
func (h *CatalogHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	books, err := h.catalog.ListByCategory(r.Context(), pathParam(r, "category"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, query.BookRows(books))
}
