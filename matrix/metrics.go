package matrix

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks engine activity. A nil *Metrics disables collection.
type Metrics struct {
	Registrations    *prometheus.CounterVec
	SlotFills        *prometheus.CounterVec
	Completions      prometheus.Counter
	BurnedTokens     prometheus.Counter
	ReservedLamports prometheus.Counter
	PaidLamports     prometheus.Counter
	Notifications    prometheus.Counter
	FallbackBurns    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matrix",
			Name:      "registrations_total",
			Help:      "Completed registrations by kind.",
		}, []string{"kind"}),
		SlotFills: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matrix",
			Name:      "slot_fills_total",
			Help:      "Matrix slots filled by slot index.",
		}, []string{"slot"}),
		Completions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "matrix",
			Name:      "completions_total",
			Help:      "Matrices completed and reset.",
		}),
		BurnedTokens: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "matrix",
			Name:      "burned_tokens_total",
			Help:      "Protocol tokens burned after swaps.",
		}),
		ReservedLamports: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "matrix",
			Name:      "reserved_lamports_total",
			Help:      "Lamports escrowed for slot 2 fills.",
		}),
		PaidLamports: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "matrix",
			Name:      "paid_lamports_total",
			Help:      "Escrowed lamports paid out on slot 3 fills.",
		}),
		Notifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "matrix",
			Name:      "airdrop_notifications_total",
			Help:      "Completion notifications delivered to the airdrop ledger.",
		}),
		FallbackBurns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "matrix",
			Name:      "fallback_burns_total",
			Help:      "Deposits burned because no ancestor slot absorbed them.",
		}),
	}
}

func (m *Metrics) ObserveRegistration(kind string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveSlotFill(slotIdx uint8) {
	if m == nil {
		return
	}
	m.SlotFills.WithLabelValues(strconv.Itoa(int(slotIdx))).Inc()
}

func (m *Metrics) ObserveCompletion() {
	if m == nil {
		return
	}
	m.Completions.Inc()
}

func (m *Metrics) ObserveBurn(tokens uint64) {
	if m == nil {
		return
	}
	m.BurnedTokens.Add(float64(tokens))
}

func (m *Metrics) ObserveReserve(lamports uint64) {
	if m == nil {
		return
	}
	m.ReservedLamports.Add(float64(lamports))
}

func (m *Metrics) ObservePayout(lamports uint64) {
	if m == nil {
		return
	}
	m.PaidLamports.Add(float64(lamports))
}

func (m *Metrics) ObserveNotification() {
	if m == nil {
		return
	}
	m.Notifications.Inc()
}

func (m *Metrics) ObserveFallbackBurn() {
	if m == nil {
		return
	}
	m.FallbackBurns.Inc()
}
