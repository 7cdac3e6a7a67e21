package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type TotemMetrics struct {
	events         *prometheus.CounterVec
	meritCredited  prometheus.Counter
	boosts         prometheus.Counter
	rewardsClaimed prometheus.Counter
	saleBuys       prometheus.Counter
	saleSells      prometheus.Counter
	salesClosed    prometheus.Counter
	redemptions    prometheus.Counter
	currentPeriod  prometheus.Gauge
}

var (
	totemOnce     sync.Once
	totemRegistry *TotemMetrics
)

func Totem() *TotemMetrics {
	totemOnce.Do(func() {
		totemRegistry = &TotemMetrics{
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "totem_events_total",
				Help: "Count of engine events by type.",
			}, []string{"type"}),
			meritCredited: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "totem_merit_credited_total",
				Help: "Count of merit credit operations.",
			}),
			boosts: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "totem_boosts_total",
				Help: "Count of paid boost operations.",
			}),
			rewardsClaimed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "totem_rewards_claimed_total",
				Help: "Count of period reward claims.",
			}),
			saleBuys: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "totem_sale_buys_total",
				Help: "Count of sale purchases.",
			}),
			saleSells: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "totem_sale_sells_total",
				Help: "Count of pro rata sell backs.",
			}),
			salesClosed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "totem_sales_closed_total",
				Help: "Count of sale closures.",
			}),
			redemptions: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "totem_vault_redemptions_total",
				Help: "Count of vault share redemptions.",
			}),
			currentPeriod: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "totem_current_period",
				Help: "Most recently observed accounting period index.",
			}),
		}
		prometheus.MustRegister(
			totemRegistry.events,
			totemRegistry.meritCredited,
			totemRegistry.boosts,
			totemRegistry.rewardsClaimed,
			totemRegistry.saleBuys,
			totemRegistry.saleSells,
			totemRegistry.salesClosed,
			totemRegistry.redemptions,
			totemRegistry.currentPeriod,
		)
	})
	return totemRegistry
}

func (m *TotemMetrics) ObserveEvent(eventType string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.events.WithLabelValues(eventType).Inc()
	switch eventType {
	case "merit.credited":
		m.meritCredited.Inc()
	case "merit.boosted":
		m.boosts.Inc()
	case "merit.reward.claimed":
		m.rewardsClaimed.Inc()
	case "sale.bought":
		m.saleBuys.Inc()
	case "sale.sold":
		m.saleSells.Inc()
	case "sale.closed":
		m.salesClosed.Inc()
	case "vault.redeemed":
		m.redemptions.Inc()
	}
}

func (m *TotemMetrics) SetCurrentPeriod(period uint64) {
	if m == nil {
		return
	}
	m.currentPeriod.Set(float64(period))
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
