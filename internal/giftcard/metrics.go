package giftcard

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts redemption outcomes.
type Metrics struct {
	redemptions *prometheus.CounterVec
}

// NewMetrics registers the ledger collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	redemptions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "giftcard_redemptions_total",
		Help: "Gift card redemption attempts by result and path.",
	}, []string{"result", "path"})
	if reg != nil {
		if errRegister := reg.Register(redemptions); errRegister != nil {
			return nil, errRegister
		}
	}
	return &Metrics{redemptions: redemptions}, nil
}

func (m *Metrics) observe(o Outcome) {
	if m == nil {
		return
	}
	result := "redeemed"
	if !o.Redeemed {
		result = string(o.Reason)
	}
	m.redemptions.WithLabelValues(result, o.Path).Inc()
}
