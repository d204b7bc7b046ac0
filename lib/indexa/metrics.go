package indexa

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

// countOp increments the per-operation counter.
func countOp(op string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`indexa_operations_total{op=%q}`, op)).Inc()
}

// countOpError increments the per-operation error counter.
func countOpError(op string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`indexa_operation_errors_total{op=%q}`, op)).Inc()
}

// countNotification increments the notification cycle counter.
func countNotification() {
	metrics.GetOrCreateCounter(`indexa_notifications_total`).Inc()
}
