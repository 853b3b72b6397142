// Package overdue は延滞中の貸出数を定期的に集計するジョブを提供する。
// 集計結果はゲージとして公開し、延滞の増加を監視できるようにする。
// 貸出台帳の状態は読み取るだけで変更しない。
package overdue

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Counter は延滞中の未返却貸出数を数えるインターフェース。
type Counter interface {
	CountOverdue(ctx context.Context, now time.Time) (int, error)
}

// Gauge は集計結果の公開先。
type Gauge interface {
	SetOpenLoansOverdue(n int)
}

// Job は延滞集計ジョブ。
type Job struct {
	counter Counter
	gauge   Gauge
	logger  *slog.Logger
	now     func() time.Time
}

// NewJob は新しいJobを生成する。
func NewJob(counter Counter, gauge Gauge, logger *slog.Logger) *Job {
	return &Job{
		counter: counter,
		gauge:   gauge,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce は延滞中の貸出数を1回集計してゲージに反映する。
func (j *Job) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()

	n, err := j.counter.CountOverdue(ctx, j.now())
	if err != nil {
		return 0, fmt.Errorf("延滞集計の実行に失敗: %w", err)
	}
	j.gauge.SetOpenLoansOverdue(n)

	j.logger.Info("延滞集計ジョブが完了しました",
		slog.Int("overdue_count", n),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return n, nil
}

// Start は起動直後に1回、その後interval間隔で集計を実行する。
// ctxがキャンセルされるまでブロックする。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("延滞集計ジョブを開始しました",
		slog.Duration("interval", interval),
	)

	j.runLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("延滞集計ジョブを停止しました")
			return
		case <-ticker.C:
			j.runLogged(ctx)
		}
	}
}

func (j *Job) runLogged(ctx context.Context) {
	if _, err := j.RunOnce(ctx); err != nil {
		j.logger.Error("延滞集計ジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}
