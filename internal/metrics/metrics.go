// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ストア層やワーカーから利用する。
type MetricsCollector interface {
	RecordStoreOperation(collection, operation string, duration time.Duration, err error)
	RecordHTTPStatus(statusCode int)
	RecordBackupSuccess(users int)
	RecordBackupFailure()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	storeOps     *prometheus.CounterVec
	storeErrors  *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec
	httpStatus   *prometheus.CounterVec
	backupOK     prometheus.Counter
	backupFail   prometheus.Counter
	backupUsers  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchlog_store_operations_total",
			Help: "コレクション・操作別のストア操作の合計数",
		}, []string{"collection", "operation"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchlog_store_errors_total",
			Help: "コレクション・操作別のストア操作失敗の合計数",
		}, []string{"collection", "operation"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pitchlog_store_latency_seconds",
			Help:    "ストア操作のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchlog_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		backupOK: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pitchlog_backup_success_total",
			Help: "バックアップ成功の合計数",
		}),
		backupFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pitchlog_backup_fail_total",
			Help: "バックアップ失敗の合計数",
		}),
		backupUsers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pitchlog_backup_users_total",
			Help: "バックアップに書き出されたユーザー文書の合計数",
		}),
	}

	reg.MustRegister(
		c.storeOps,
		c.storeErrors,
		c.storeLatency,
		c.httpStatus,
		c.backupOK,
		c.backupFail,
		c.backupUsers,
	)

	return c
}

// RecordStoreOperation はストア操作の実行と結果を記録する。
func (c *Collector) RecordStoreOperation(collection, operation string, duration time.Duration, err error) {
	c.storeOps.WithLabelValues(collection, operation).Inc()
	c.storeLatency.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		c.storeErrors.WithLabelValues(collection, operation).Inc()
	}
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordBackupSuccess はバックアップ成功と書き出したユーザー文書数を記録する。
func (c *Collector) RecordBackupSuccess(users int) {
	c.backupOK.Inc()
	c.backupUsers.Add(float64(users))
}

// RecordBackupFailure はバックアップ失敗を記録する。
func (c *Collector) RecordBackupFailure() {
	c.backupFail.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
