// Package arenametrics exports arena statistics as Prometheus gauges.
//
// Arenas are not safe for concurrent use, so gauges are not read from the
// arenas at scrape time. The goroutine that owns the arenas calls Update (or
// Observe) at a point of its choosing, typically once per frame, and scrapes
// see the values from the last update.
package arenametrics

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	arena "github.com/pavanmanishd/blockarena"
)

// Source is anything that can report arena metrics, such as a MemoryArena.
type Source interface {
	Metrics() arena.Metrics
}

// Metrics holds one gauge vector per arena statistic, labelled by arena name.
type Metrics struct {
	AllocatedBytes  *prometheus.GaugeVec
	InUseBytes      *prometheus.GaugeVec
	Blocks          *prometheus.GaugeVec
	FreeListEntries *prometheus.GaugeVec
	FreeListBytes   *prometheus.GaugeVec
	Outstanding     *prometheus.GaugeVec
	Utilization     *prometheus.GaugeVec

	sources map[string]Source
}

// New registers the gauges with reg under namespace.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	gauge := func(name, help string) *prometheus.GaugeVec {
		return promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, []string{"arena"})
	}
	return &Metrics{
		AllocatedBytes:  gauge("arena_allocated_bytes", "Memory reserved by the arena's allocator"),
		InUseBytes:      gauge("arena_in_use_bytes", "Bytes carved out of reserved memory, headers and padding included"),
		Blocks:          gauge("arena_blocks", "Blocks or chunks reserved by the arena's allocator"),
		FreeListEntries: gauge("arena_free_list_entries", "Freed allocations waiting for reuse"),
		FreeListBytes:   gauge("arena_free_list_bytes", "Bytes held by freed allocations waiting for reuse"),
		Outstanding:     gauge("arena_outstanding_allocations", "Live allocations seen by the arena's tracker"),
		Utilization:     gauge("arena_utilization_ratio", "Bytes in use divided by reserved bytes"),
		sources:         map[string]Source{},
	}
}

// Add makes Update report s under name, replacing any source of that name.
func (m *Metrics) Add(name string, s Source) {
	m.sources[name] = s
}

// Remove stops reporting name and drops its series.
func (m *Metrics) Remove(name string) {
	delete(m.sources, name)
	for _, g := range m.vecs() {
		g.DeleteLabelValues(name)
	}
}

// Update observes every added source.
func (m *Metrics) Update() {
	names := make([]string, 0, len(m.sources))
	for name := range m.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m.Observe(name, m.sources[name].Metrics())
	}
}

// Observe sets the gauges of arena name from a snapshot.
func (m *Metrics) Observe(name string, s arena.Metrics) {
	m.AllocatedBytes.WithLabelValues(name).Set(float64(s.AllocatedSize))
	m.InUseBytes.WithLabelValues(name).Set(float64(s.BytesInUse))
	m.Blocks.WithLabelValues(name).Set(float64(s.Blocks))
	m.FreeListEntries.WithLabelValues(name).Set(float64(s.FreeListEntries))
	m.FreeListBytes.WithLabelValues(name).Set(float64(s.FreeListBytes))
	m.Outstanding.WithLabelValues(name).Set(float64(s.Outstanding))
	m.Utilization.WithLabelValues(name).Set(s.Utilization)
}

func (m *Metrics) vecs() []*prometheus.GaugeVec {
	return []*prometheus.GaugeVec{
		m.AllocatedBytes, m.InUseBytes, m.Blocks, m.FreeListEntries,
		m.FreeListBytes, m.Outstanding, m.Utilization,
	}
}
