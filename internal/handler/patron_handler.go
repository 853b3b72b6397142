package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/bookloan/internal/model"
)

// PatronServiceInterface は利用者ハンドラーが必要とするサービスインターフェース。
type PatronServiceInterface interface {
	// Resolve は連絡先で利用者を検索し、存在しなければ登録する。
	Resolve(ctx context.Context, name, contact string) (*model.Patron, error)
}

// PatronHandler は利用者登録のHTTPハンドラー。
type PatronHandler struct {
	service PatronServiceInterface
}

// NewPatronHandler はPatronHandlerを生成する。
func NewPatronHandler(service PatronServiceInterface) *PatronHandler {
	return &PatronHandler{service: service}
}

type resolvePatronRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

// patronResponse は利用者情報のAPIレスポンス。
type patronResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

// Resolve は利用者の登録またはログインを処理する。
// POST /api/patrons
func (h *PatronHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolvePatronRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	p, err := h.service.Resolve(r.Context(), req.Name, req.Contact)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, patronResponse{
		ID:      p.ID,
		Name:    p.Name,
		Contact: p.Contact,
	})
}
