// Package app はサブコマンドの解析と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/bookloan/internal/catalog"
	"github.com/hitoshi/bookloan/internal/config"
	"github.com/hitoshi/bookloan/internal/database"
	"github.com/hitoshi/bookloan/internal/handler"
	"github.com/hitoshi/bookloan/internal/ledger"
	"github.com/hitoshi/bookloan/internal/logger"
	"github.com/hitoshi/bookloan/internal/metrics"
	"github.com/hitoshi/bookloan/internal/middleware"
	"github.com/hitoshi/bookloan/internal/model"
	"github.com/hitoshi/bookloan/internal/patron"
	"github.com/hitoshi/bookloan/internal/query"
	"github.com/hitoshi/bookloan/internal/repository"
	"github.com/hitoshi/bookloan/internal/review"
	"github.com/hitoshi/bookloan/internal/security"
	"github.com/hitoshi/bookloan/internal/worker/overdue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。SIGINTまたはSIGTERMでコンテキストがキャンセルされる。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeed:
		return runSeed(ctx, cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// stores はサービス層が使うリポジトリの組。
// 本番ではPostgreSQL実装、テストではインメモリ実装を渡す。
type stores struct {
	books   repository.BookRepository
	patrons repository.PatronRepository
	loans   repository.LoanRepository
	reviews repository.ReviewRepository
}

// serverDeps はHTTPハンドラーの構築に必要な外部依存。
type serverDeps struct {
	stores      stores
	health      handler.HealthChecker
	registry    *prometheus.Registry
	collector   *metrics.Collector
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

// newHandler はサービス層とハンドラーアダプタを構築し、ルーターを返す。
func newHandler(cfg *config.Config, deps serverDeps) http.Handler {
	catalogSvc := catalog.NewService(deps.stores.books)
	patronSvc := patron.NewService(deps.stores.patrons)
	ledgerSvc := ledger.NewService(deps.stores.loans, ledger.Config{
		LoanPeriod:    cfg.LoanPeriod,
		PenaltyPerDay: model.Money(cfg.PenaltyPerDay),
	}, ledger.WithMetrics(deps.collector))
	reviewSvc := review.NewService(deps.stores.reviews, deps.stores.books, security.NewReviewSanitizer(), deps.collector)
	querySvc := query.NewService(catalogSvc, reviewSvc, ledgerSvc)

	return handler.NewRouter(&handler.RouterDeps{
		Logger:            deps.logger,
		PatronFinder:      patronSvc,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       deps.rateLimiter,

		HealthChecker: deps.health,
		Metrics:       deps.collector,
		Gatherer:      deps.registry,

		PatronService: patronSvc,

		CatalogService:    catalogSvc,
		BookDetailService: querySvc,

		LoanService: handler.NewLoanServiceAdapter(ledgerSvc),
		LoanQueries: querySvc,

		ReviewService: reviewSvc,
		ReviewQueries: querySvc,
	})
}

// newRegistry はアプリケーションとランタイムのメトリクスを登録したレジストリを返す。
func newRegistry() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクス
	reg, collector := newRegistry()

	// 3. リポジトリの初期化
	// シリアライズ失敗とデッドロックはトランザクション全体を再試行する
	txRunner := database.NewTxRunner(db,
		database.WithMaxAttempts(cfg.TxMaxAttempts),
		database.WithRetryHook(func(attempt int, err error) {
			collector.RecordTxRetry()
			slog.Warn("retrying transaction",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		}),
	)
	loanRepo := repository.NewPostgresLoanRepo(db, txRunner)
	st := stores{
		books:   repository.NewPostgresBookRepo(db),
		patrons: repository.NewPostgresPatronRepo(db),
		loans:   loanRepo,
		reviews: repository.NewPostgresReviewRepo(db),
	}

	// 延滞集計ジョブをバックグラウンドで起動
	go overdue.NewJob(loanRepo, collector, slog.Default()).Start(ctx, cfg.OverdueScanInterval)

	// 4. ルーターの構築
	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitMutation))
	defer rl.Stop()

	router := newHandler(cfg, serverDeps{
		stores:      st,
		health:      db,
		registry:    reg,
		collector:   collector,
		rateLimiter: rl,
		logger:      slog.Default(),
	})

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.SchemaVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// runSeed はYAMLの蔵書リストから未登録の本を登録する。
// CATALOG_SEED_FILEが未設定の場合は組み込みの蔵書リストを使う。
func runSeed(ctx context.Context, cfg *config.Config) error {
	entries, err := catalog.LoadSeedFile(cfg.CatalogSeedFile)
	if err != nil {
		return fmt.Errorf("failed to load seed file: %w", err)
	}

	db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	return seedCatalog(ctx, repository.NewPostgresBookRepo(db), entries)
}

// seedCatalog は蔵書を登録し、結果をログに記録する。
func seedCatalog(ctx context.Context, books repository.BookRepository, entries []catalog.SeedBook) error {
	inserted, err := catalog.NewService(books).Seed(ctx, entries)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	slog.Info("catalog seeded",
		slog.Int("entries", len(entries)),
		slog.Int("inserted", inserted),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
