package inventory

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"StockRoom/pkg/kit"
)

const labelCategory = "category"

// observeMu serializes Observe. ReportGauges built on the same registry share
// their collectors, so the lock cannot live on the struct.
var observeMu sync.Mutex

// ReportGauges exports the most recently computed report as prometheus gauges.
type ReportGauges struct {
	units        prometheus.Gauge
	value        prometheus.Gauge
	unitsByCat   *prometheus.GaugeVec
	valueByCat   *prometheus.GaugeVec
	averageByCat *prometheus.GaugeVec
}

func NewReportGauges(reg prometheus.Registerer) *ReportGauges {
	g := &ReportGauges{
		units: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inventory_units_in_stock",
			Help: "Units in stock across all categories",
		}),
		value: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inventory_value_in_stock",
			Help: "Value of stock across all categories",
		}),
		unitsByCat: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "inventory_category_units_in_stock",
			Help: "Units in stock per category",
		}, []string{labelCategory}),
		valueByCat: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "inventory_category_value_in_stock",
			Help: "Value of stock per category",
		}, []string{labelCategory}),
		averageByCat: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "inventory_category_average_unit_price",
			Help: "Mean unit price of in-stock products per category",
		}, []string{labelCategory}),
	}

	g.units = kit.Register(reg, g.units)
	g.value = kit.Register(reg, g.value)
	g.unitsByCat = kit.Register(reg, g.unitsByCat)
	g.valueByCat = kit.Register(reg, g.valueByCat)
	g.averageByCat = kit.Register(reg, g.averageByCat)
	return g
}

// Observe replaces the exported values with rep. Concurrent calls never leave a
// mix of two reports behind.
func (g *ReportGauges) Observe(rep InventoryReport) {
	observeMu.Lock()
	defer observeMu.Unlock()

	g.units.Set(float64(rep.Overall.TotalUnitsInStock))
	g.value.Set(rep.Overall.TotalValue.InexactFloat64())

	g.unitsByCat.Reset()
	g.valueByCat.Reset()
	g.averageByCat.Reset()
	for _, c := range rep.Categories {
		g.unitsByCat.WithLabelValues(c.CategoryName).Set(float64(c.TotalUnitsInStock))
		g.valueByCat.WithLabelValues(c.CategoryName).Set(c.TotalValue.InexactFloat64())
		g.averageByCat.WithLabelValues(c.CategoryName).Set(c.AverageUnitPrice.InexactFloat64())
	}
}
