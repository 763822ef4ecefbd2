// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordScan(qrID string)
	RecordScanNotFound()
	RecordTrackedCreated()
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordSurveyResponse(slug string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus     *prometheus.CounterVec
	scans          prometheus.Counter
	scanNotFound   prometheus.Counter
	trackedCreated prometheus.Counter
	loginSuccess   prometheus.Counter
	loginFailure   prometheus.Counter
	surveyResponse prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forgelab_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		scans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forgelab_qr_scan_total",
			Help: "トラッキングURLのスキャン合計数",
		}),
		scanNotFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forgelab_qr_scan_not_found_total",
			Help: "未知のトラッキングIDへのアクセス合計数",
		}),
		trackedCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forgelab_qr_created_total",
			Help: "発行されたトラッキングURLの合計数",
		}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forgelab_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forgelab_login_failure_total",
			Help: "ログイン失敗の合計数",
		}),
		surveyResponse: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forgelab_survey_response_total",
			Help: "アンケート回答の合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.scans,
		c.scanNotFound,
		c.trackedCreated,
		c.loginSuccess,
		c.loginFailure,
		c.surveyResponse,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordScan はトラッキングURLのスキャンを記録する。
func (c *Collector) RecordScan(qrID string) {
	c.scans.Inc()
}

// RecordScanNotFound は未知のトラッキングIDへのアクセスを記録する。
func (c *Collector) RecordScanNotFound() {
	c.scanNotFound.Inc()
}

// RecordTrackedCreated はトラッキングURLの発行を記録する。
func (c *Collector) RecordTrackedCreated() {
	c.trackedCreated.Inc()
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFailure.Inc()
}

// RecordSurveyResponse はアンケート回答の記録を記録する。
func (c *Collector) RecordSurveyResponse(slug string) {
	c.surveyResponse.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
