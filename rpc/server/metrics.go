package server

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/dCommerce/rpc/common"
	"github.com/VictoriaMetrics/metrics"
)

// observeRequest records the count, latency and failures of a handled request per message type.
// The metrics end up in the default set served at /metrics by the http transport.
func observeRequest(msgType common.MessageType, start time.Time, failed bool) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`dcommerce_rpc_requests_total{type=%q}`, msgType)).Inc()
	metrics.GetOrCreateHistogram(fmt.Sprintf(`dcommerce_rpc_request_duration_seconds{type=%q}`, msgType)).UpdateDuration(start)
	if failed {
		metrics.GetOrCreateCounter(fmt.Sprintf(`dcommerce_rpc_request_errors_total{type=%q}`, msgType)).Inc()
	}
}
