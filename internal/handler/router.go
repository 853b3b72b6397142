package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/bookloan/internal/metrics"
	"github.com/hitoshi/bookloan/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	PatronFinder      middleware.PatronFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 運用
	HealthChecker HealthChecker
	Metrics       metrics.MetricsCollector
	Gatherer      prometheus.Gatherer

	// 利用者
	PatronService PatronServiceInterface

	// 蔵書
	CatalogService    CatalogServiceInterface
	BookDetailService BookDetailServiceInterface

	// 貸出
	LoanService LoanServiceInterface
	LoanQueries LoanQueryInterface

	// レビュー
	ReviewService ReviewServiceInterface
	ReviewQueries ReviewQueryInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → Metrics → CORS → RateLimit(General)
//	  → Patron → RateLimit(Mutation)
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	patronHandler := NewPatronHandler(deps.PatronService)
	catalogHandler := NewCatalogHandler(deps.CatalogService, deps.BookDetailService)
	loanHandler := NewLoanHandler(deps.LoanService, deps.LoanQueries)
	reviewHandler := NewReviewHandler(deps.ReviewService, deps.ReviewQueries)

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// --- 利用者の確認が不要なルート ---
		r.With(deps.RateLimiter.MutationMiddleware()).Post("/patrons", patronHandler.Resolve)

		r.Get("/books", catalogHandler.Search)
		r.Get("/books/available", catalogHandler.ListAvailable)
		r.Get("/books/{title}", catalogHandler.GetBook)
		r.Get("/books/{title}/reviews", reviewHandler.List)
		r.Get("/categories", catalogHandler.ListCategories)
		r.Get("/categories/{category}/books", catalogHandler.ListByCategory)

		// --- 利用者の確認が必要なルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewPatronMiddleware(deps.PatronFinder))

			r.Group(func(r chi.Router) {
				r.Use(deps.RateLimiter.MutationMiddleware())
				r.Post("/books/{title}/borrow", loanHandler.Borrow)
				r.Post("/books/{title}/return", loanHandler.Return)
				r.Post("/books/{title}/reviews", reviewHandler.Submit)
			})

			r.Get("/me/loans", loanHandler.OpenLoans)
			r.Get("/me/history", loanHandler.History)
		})
	})

	return r
}
