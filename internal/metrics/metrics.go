// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 貸出拒否の理由ラベル
const (
	ReasonNotAvailable = "not_available"
	ReasonNotFound     = "not_found"
	ReasonNoOpenLoan   = "no_open_loan"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 貸出台帳・レビュー・HTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordLoanOpened()
	RecordLoanClosed(penaltyMinor int64, daysLate int64)
	RecordLoanRejected(reason string)
	RecordTxRetry()
	RecordReviewSubmitted()
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loansOpened     prometheus.Counter
	loansClosed     prometheus.Counter
	loansOverdue    prometheus.Counter
	loanRejected    *prometheus.CounterVec
	penaltyTotal    prometheus.Counter
	txRetries       prometheus.Counter
	reviewsCreated  prometheus.Counter
	httpStatus      *prometheus.CounterVec
	requestDuration prometheus.Histogram
	openOverdue     prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loansOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookloan_loans_opened_total",
			Help: "貸出の合計数",
		}),
		loansClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookloan_loans_closed_total",
			Help: "返却の合計数",
		}),
		loansOverdue: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookloan_loans_returned_late_total",
			Help: "返却期限を過ぎて返却された貸出の合計数",
		}),
		loanRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookloan_loan_rejected_total",
			Help: "理由別の貸出・返却の拒否数",
		}, []string{"reason"}),
		penaltyTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookloan_penalty_minor_units_total",
			Help: "確定した延滞金の合計（最小通貨単位）",
		}),
		txRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookloan_tx_retries_total",
			Help: "シリアライゼーション失敗・デッドロックによるトランザクション再試行数",
		}),
		reviewsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookloan_reviews_submitted_total",
			Help: "投稿されたレビューの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookloan_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bookloan_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		openOverdue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bookloan_open_loans_overdue",
			Help: "返却期限を過ぎている未返却の貸出数（定期集計）",
		}),
	}

	reg.MustRegister(
		c.loansOpened,
		c.loansClosed,
		c.loansOverdue,
		c.loanRejected,
		c.penaltyTotal,
		c.txRetries,
		c.reviewsCreated,
		c.httpStatus,
		c.requestDuration,
		c.openOverdue,
	)

	return c
}

// RecordLoanOpened は貸出を記録する。
func (c *Collector) RecordLoanOpened() {
	c.loansOpened.Inc()
}

// RecordLoanClosed は返却と確定した延滞金を記録する。
func (c *Collector) RecordLoanClosed(penaltyMinor int64, daysLate int64) {
	c.loansClosed.Inc()
	if daysLate > 0 {
		c.loansOverdue.Inc()
	}
	if penaltyMinor > 0 {
		c.penaltyTotal.Add(float64(penaltyMinor))
	}
}

// RecordLoanRejected は拒否された貸出・返却を理由別に記録する。
func (c *Collector) RecordLoanRejected(reason string) {
	c.loanRejected.WithLabelValues(reason).Inc()
}

// RecordTxRetry はトランザクションの再試行を記録する。
func (c *Collector) RecordTxRetry() {
	c.txRetries.Inc()
}

// RecordReviewSubmitted はレビュー投稿を記録する。
func (c *Collector) RecordReviewSubmitted() {
	c.reviewsCreated.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// SetOpenLoansOverdue は延滞中の未返却貸出数を設定する。
func (c *Collector) SetOpenLoansOverdue(n int) {
	c.openOverdue.Set(float64(n))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var _ MetricsCollector = (*Collector)(nil)
