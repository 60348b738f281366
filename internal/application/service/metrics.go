package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	voucherOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voucher_operations_total",
			Help: "Total number of voucher lifecycle operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	voucherImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voucher_imports_total",
			Help: "Total number of import runs by result",
		},
		[]string{"result"},
	)

	vouchersImportedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vouchers_imported_total",
			Help: "Total number of vouchers persisted through batch import",
		},
	)

	codeCollisionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voucher_code_collisions_total",
			Help: "Total number of generated voucher codes that collided with an existing code",
		},
	)
)

func recordOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = AsError(err).Kind.String()
	}
	voucherOperationsTotal.WithLabelValues(operation, result).Inc()
}
