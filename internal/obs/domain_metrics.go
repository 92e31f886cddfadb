package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SalesCompletedTotal counts finalized sales by payment method and discount type.
	SalesCompletedTotal *prometheus.CounterVec
	// SaleTotalCentavos records the distribution of sale totals in centavos.
	SaleTotalCentavos prometheus.Histogram
	// NotificationDeliveries tracks notification outcomes per channel.
	NotificationDeliveries *prometheus.CounterVec
	// LowStockEventsTotal counts products crossing their restock threshold.
	LowStockEventsTotal prometheus.Counter
	// OpenSessions gauges the number of register sessions currently open.
	OpenSessions prometheus.Gauge
)

// MustRegisterDomainMetrics initialises and registers the POS domain collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SalesCompletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_completed_total",
			Help:      "Count of finalized sales.",
		}, []string{"payment_method", "discount_type"})
		SaleTotalCentavos = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sale_total_centavos",
			Help:      "Distribution of sale totals in centavos.",
			Buckets:   []float64{1000, 5000, 10000, 25000, 50000, 100000, 250000, 500000},
		})
		NotificationDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_deliveries_total",
			Help:      "Count of notification delivery outcomes per channel.",
		}, []string{"channel", "result"})
		LowStockEventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_stock_events_total",
			Help:      "Number of products that crossed their restock threshold.",
		})
		OpenSessions = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_sessions",
			Help:      "Current number of open register sessions.",
		})

		mustRegisterCollector(reg, SalesCompletedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SalesCompletedTotal = v
			}
		})
		mustRegisterCollector(reg, SaleTotalCentavos, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				SaleTotalCentavos = v
			}
		})
		mustRegisterCollector(reg, NotificationDeliveries, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				NotificationDeliveries = v
			}
		})
		mustRegisterCollector(reg, LowStockEventsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				LowStockEventsTotal = v
			}
		})
		mustRegisterCollector(reg, OpenSessions, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				OpenSessions = v
			}
		})
	})
}

// RecordSale observes a finalized sale. Safe to call before registration.
func RecordSale(paymentMethod, discountType string, totalCentavos int64) {
	if SalesCompletedTotal != nil {
		SalesCompletedTotal.WithLabelValues(paymentMethod, discountType).Inc()
	}
	if SaleTotalCentavos != nil {
		SaleTotalCentavos.Observe(float64(totalCentavos))
	}
}

// RecordNotificationDelivery observes one notification attempt outcome.
func RecordNotificationDelivery(channel, result string) {
	if NotificationDeliveries != nil {
		NotificationDeliveries.WithLabelValues(channel, result).Inc()
	}
}

// RecordLowStockEvent observes a restock alert.
func RecordLowStockEvent() {
	if LowStockEventsTotal != nil {
		LowStockEventsTotal.Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
