package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels for SignIns.
const (
	ResultIssued   = "issued"
	ResultNoNonce  = "no_challenge"
	ResultExpired  = "expired"
	ResultBadSig   = "bad_signature"
	ResultMismatch = "signer_mismatch"
)

type Metrics struct {
	ChallengesIssued prometheus.Counter
	SignIns          *prometheus.CounterVec
}

// New registers the auth metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		ChallengesIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "tipjar_auth_challenges_issued_total",
			Help: "Sign-in challenges handed out",
		}),
		SignIns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tipjar_auth_sign_ins_total",
			Help: "Signature exchanges by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncrementChallenge() {
	if m == nil {
		return
	}
	m.ChallengesIssued.Inc()
}

func (m *Metrics) IncrementSignIn(result string) {
	if m == nil {
		return
	}
	m.SignIns.WithLabelValues(result).Inc()
}
