// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/bookloan/internal/model"
)

// PatronIDHeader は利用者IDを運ぶリクエストヘッダー名。
const PatronIDHeader = "X-Patron-ID"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// patronIDContextKey はリクエストコンテキストに利用者IDを格納するためのキー。
var patronIDContextKey = contextKey("patron_id")

// PatronFinder は利用者の検証に必要なインターフェース。
// patron.Serviceの部分集合として定義する。
type PatronFinder interface {
	Get(ctx context.Context, id string) (*model.Patron, error)
}

// NewPatronMiddleware はX-Patron-IDヘッダーから利用者IDを読み取り、
// 利用者ディレクトリに存在することを検証するミドルウェアを返す。
// 検証済みの利用者IDをリクエストコンテキストに注入する。
// ヘッダーがない、または未登録の利用者の場合は401を返す。
func NewPatronMiddleware(finder PatronFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(PatronIDHeader))
			if id == "" {
				writeUnauthorized(w)
				return
			}

			p, err := finder.Get(r.Context(), id)
			if err != nil {
				var apiErr *model.APIError
				if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeNotFound {
					writeUnauthorized(w)
					return
				}
				slog.Error("failed to verify patron",
					slog.String("patron_id", id),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			markPatron(r.Context(), p.ID)
			ctx := context.WithValue(r.Context(), patronIDContextKey, p.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PatronIDFromContext はリクエストコンテキストから利用者IDを取得する。
// 利用者ミドルウェアを通過したリクエストでのみ値が存在する。
func PatronIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(patronIDContextKey).(string)
	return id, ok && id != ""
}

// ContextWithPatronID はコンテキストに利用者IDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPatronID(ctx context.Context, patronID string) context.Context {
	return context.WithValue(ctx, patronIDContextKey, patronID)
}

func writeUnauthorized(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "利用者を確認できません。",
		Category: "patron",
		Action:   "名前と連絡先で利用者登録を行い、発行されたIDをX-Patron-IDヘッダーで送信してください。",
	})
}
