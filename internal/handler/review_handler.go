package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/bookloan/internal/model"
	"github.com/hitoshi/bookloan/internal/query"
)

// ReviewServiceInterface はレビュー投稿に必要なサービスインターフェース。
type ReviewServiceInterface interface {
	Submit(ctx context.Context, title, patronID, text string, rating int) (*model.Review, error)
}

// ReviewQueryInterface はレビュー一覧表示に必要なサービスインターフェース。
type ReviewQueryInterface interface {
	Reviews(ctx context.Context, title string) ([]query.ReviewRow, error)
}

// ReviewHandler はレビューのHTTPハンドラー。
type ReviewHandler struct {
	service ReviewServiceInterface
	queries ReviewQueryInterface
}

// NewReviewHandler はReviewHandlerを生成する。
func NewReviewHandler(service ReviewServiceInterface, queries ReviewQueryInterface) *ReviewHandler {
	return &ReviewHandler{service: service, queries: queries}
}

type submitReviewRequest struct {
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

// reviewResponse は投稿されたレビューのAPIレスポンス。
type reviewResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Rating   int    `json:"rating"`
	Stars    string `json:"stars"`
	PostedOn string `json:"posted_on"`
}

// Submit はレビュー投稿を処理する。
// POST /api/books/{title}/reviews
func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	patronID, ok := requirePatronID(w, r)
	if !ok {
		return
	}

	var req submitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	title := pathParam(r, "title")
	review, err := h.service.Submit(r.Context(), title, patronID, req.Text, req.Rating)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, reviewResponse{
		ID:       review.ID,
		Title:    title,
		Text:     review.Text,
		Rating:   review.Rating,
		Stars:    query.Stars(review.Rating),
		PostedOn: review.CreatedAt.Format(time.DateOnly),
	})
}

// List は本のレビューを新しい順で返す。
// GET /api/books/{title}/reviews
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.queries.Reviews(r.Context(), pathParam(r, "title"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
