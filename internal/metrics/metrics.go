package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckoutDuration 下单请求耗时
	CheckoutDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailspot_checkout_duration_seconds",
			Help:    "Duration of checkout initiation in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"result"},
	)

	// WebhookEvents 支付回调事件
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailspot_webhook_events_total",
			Help: "Payment webhook events by type and outcome",
		},
		[]string{"type", "status"},
	)

	// SpotTransitions 广告位状态迁移
	SpotTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailspot_spot_transitions_total",
			Help: "Ad spot state transitions by target status",
		},
		[]string{"to"},
	)

	// QRScans 二维码扫描次数
	QRScans = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailspot_qr_scans_total",
		Help: "QR code scans redirected to landing pages",
	})

	// EmailsSent 事务邮件发送结果
	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailspot_emails_total",
			Help: "Transactional emails by type and result",
		},
		[]string{"type", "result"},
	)
)

// RecordCheckoutDuration 记录下单耗时
func RecordCheckoutDuration(result string, seconds float64) {
	CheckoutDuration.WithLabelValues(result).Observe(seconds)
}

// RecordSpotTransition 记录广告位状态迁移
func RecordSpotTransition(to string, n int) {
	SpotTransitions.WithLabelValues(to).Add(float64(n))
}
