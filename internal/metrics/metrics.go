package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "becard_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "becard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SessionsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "becard_dispense_sessions_created_total",
			Help: "Total number of dispensing sessions created",
		},
		[]string{"payment_mode"},
	)

	SessionsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "becard_dispense_sessions_completed_total",
			Help: "Total number of dispensing sessions completed, by resulting status",
		},
		[]string{"payment_mode", "status"},
	)

	SessionsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "becard_dispense_sessions_expired_total",
			Help: "Total number of abandoned dispensing sessions expired by the sweeper",
		},
	)

	DispensedVolumeML = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "becard_dispensed_volume_ml_total",
			Help: "Total poured volume in millilitres",
		},
		[]string{"payment_mode"},
	)

	WalletMovementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "becard_wallet_movements_total",
			Help: "Total number of applied wallet transactions",
		},
		[]string{"direction"},
	)

	WalletMovementAmount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "becard_wallet_movement_amount_total",
			Help: "Sum of applied wallet transaction amounts",
		},
		[]string{"direction"},
	)

	PaymentConfirmationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "becard_payment_confirmations_total",
			Help: "Total number of external payment confirmations",
		},
		[]string{"status"},
	)

	LoyaltyPointsAwardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "becard_loyalty_points_awarded_total",
			Help: "Total loyalty points awarded",
		},
	)

	ReceiptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "becard_receipts_total",
			Help: "Total number of receipt notifications by outcome",
		},
		[]string{"status"},
	)

	ReceiptQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "becard_receipt_queue_length",
			Help: "Current length of the receipt queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordSessionCreated(paymentMode string) {
	SessionsCreatedTotal.WithLabelValues(paymentMode).Inc()
}

func RecordSessionCompleted(paymentMode, status string, pouredML int) {
	SessionsCompletedTotal.WithLabelValues(paymentMode, status).Inc()
	DispensedVolumeML.WithLabelValues(paymentMode).Add(float64(pouredML))
}

func RecordSessionsExpired(n int64) {
	SessionsExpiredTotal.Add(float64(n))
}

func RecordWalletMovement(direction string, amount float64) {
	WalletMovementsTotal.WithLabelValues(direction).Inc()
	WalletMovementAmount.WithLabelValues(direction).Add(amount)
}

func RecordPaymentConfirmation(status string) {
	PaymentConfirmationsTotal.WithLabelValues(status).Inc()
}

func RecordLoyaltyPoints(points int64) {
	LoyaltyPointsAwardedTotal.Add(float64(points))
}

func RecordReceipt(status string) {
	ReceiptsTotal.WithLabelValues(status).Inc()
}
