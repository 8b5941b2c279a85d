package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	id "tipjar/pkg/domain"
)

// Metrics provides observability for the ledger.
type Metrics struct {
	Donations         prometheus.Counter
	DonatedEther      prometheus.Counter
	Withdrawals       prometheus.Counter
	WithdrawnEther    prometheus.Counter
	Rejections        *prometheus.CounterVec
	CustodyBalance    prometheus.Gauge
	OperationDuration *prometheus.HistogramVec
}

// New registers the ledger metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Donations: factory.NewCounter(prometheus.CounterOpts{
			Name: "tipjar_donations_total",
			Help: "Total number of accepted donations",
		}),
		DonatedEther: factory.NewCounter(prometheus.CounterOpts{
			Name: "tipjar_donated_ether_total",
			Help: "Ether accepted through donations (approximate, float)",
		}),
		Withdrawals: factory.NewCounter(prometheus.CounterOpts{
			Name: "tipjar_withdrawals_total",
			Help: "Total number of withdrawals, including withdraw-all on an empty balance",
		}),
		WithdrawnEther: factory.NewCounter(prometheus.CounterOpts{
			Name: "tipjar_withdrawn_ether_total",
			Help: "Ether released to the owner (approximate, float)",
		}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tipjar_rejections_total",
			Help: "Rejected ledger operations by operation and error code",
		}, []string{"operation", "reason"}),
		CustodyBalance: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tipjar_custody_balance_ether",
			Help: "Funds currently held by the ledger",
		}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tipjar_operation_duration_seconds",
			Help:    "Duration of ledger operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementDonation(amount id.Amount) {
	m.Donations.Inc()
	m.DonatedEther.Add(amount.EtherFloat())
}

func (m *Metrics) IncrementWithdrawal(amount id.Amount) {
	m.Withdrawals.Inc()
	m.WithdrawnEther.Add(amount.EtherFloat())
}

func (m *Metrics) IncrementRejection(operation, reason string) {
	m.Rejections.WithLabelValues(operation, reason).Inc()
}

func (m *Metrics) SetBalance(balance id.Amount) {
	m.CustodyBalance.Set(balance.EtherFloat())
}

// ObserveOperation records the duration of an operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
