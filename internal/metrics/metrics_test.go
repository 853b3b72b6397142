package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// gather は指定名のメトリクスファミリーを返す。見つからない場合はテストを失敗させる。
func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

func TestRecordLoanOpened_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLoanOpened()
	c.RecordLoanOpened()

	val := gather(t, reg, "bookloan_loans_opened_total").GetMetric()[0].GetCounter().GetValue()
	if val != 2 {
		t.Errorf("loans_opened_total = %v, want 2", val)
	}
}

// TestRecordLoanClosed_AccumulatesPenalty は延滞金の合計と延滞返却数が記録されることを検証する。
func TestRecordLoanClosed_AccumulatesPenalty(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLoanClosed(0, 0)
	c.RecordLoanClosed(800, 8)

	if v := gather(t, reg, "bookloan_loans_closed_total").GetMetric()[0].GetCounter().GetValue(); v != 2 {
		t.Errorf("loans_closed_total = %v, want 2", v)
	}
	if v := gather(t, reg, "bookloan_loans_returned_late_total").GetMetric()[0].GetCounter().GetValue(); v != 1 {
		t.Errorf("loans_returned_late_total = %v, want 1", v)
	}
	if v := gather(t, reg, "bookloan_penalty_minor_units_total").GetMetric()[0].GetCounter().GetValue(); v != 800 {
		t.Errorf("penalty_minor_units_total = %v, want 800", v)
	}
}

func TestRecordLoanRejected_LabelsByReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLoanRejected(ReasonNotAvailable)
	c.RecordLoanRejected(ReasonNotAvailable)
	c.RecordLoanRejected(ReasonNoOpenLoan)

	mf := gather(t, reg, "bookloan_loan_rejected_total")
	got := map[string]float64{}
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "reason" {
				got[lp.GetValue()] = m.GetCounter().GetValue()
			}
		}
	}
	if got[ReasonNotAvailable] != 2 || got[ReasonNoOpenLoan] != 1 {
		t.Errorf("rejections = %v", got)
	}
}

func TestRecordHTTPStatusAndLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(http.StatusConflict)
	c.RecordRequestLatency(150 * time.Millisecond)
	c.RecordTxRetry()
	c.RecordReviewSubmitted()

	mf := gather(t, reg, "bookloan_http_status_total")
	if lbl := mf.GetMetric()[0].GetLabel()[0].GetValue(); lbl != "409" {
		t.Errorf("status_code label = %q, want 409", lbl)
	}
	h := gather(t, reg, "bookloan_http_request_duration_seconds").GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 1 {
		t.Errorf("sample count = %d, want 1", h.GetSampleCount())
	}
	if v := gather(t, reg, "bookloan_tx_retries_total").GetMetric()[0].GetCounter().GetValue(); v != 1 {
		t.Errorf("tx_retries_total = %v, want 1", v)
	}
}

// TestHandler_ServesMetrics はHandlerがテキスト形式でメトリクスを返すことを検証する。
func TestSetOpenLoansOverdue_SetsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetOpenLoansOverdue(3)
	c.SetOpenLoansOverdue(1)

	val := gather(t, reg, "bookloan_open_loans_overdue").GetMetric()[0].GetGauge().GetValue()
	if val != 1 {
		t.Errorf("open_loans_overdue = %v, want 1", val)
	}
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordLoanOpened()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "bookloan_loans_opened_total 1") {
		t.Errorf("body does not contain loans_opened_total:\n%s", body)
	}
}
