package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var allDevices = []Device{Speaker, Earpiece, Bluetooth, AudioJack}

// stats holds router metrics.
type stats struct {
	reg *prometheus.Registry

	routeChanges   *prometheus.CounterVec
	presenceEvents *prometheus.CounterVec
	rejected       prometheus.Counter
	sinkErrors     prometheus.Counter
	selected       *prometheus.GaugeVec
	present        *prometheus.GaugeVec
}

func newStats() *stats {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &stats{
		reg: reg,

		routeChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "audioroute_route_changes_total",
			Help: "Number of times the selected output device changed",
		}, []string{"device"}),
		presenceEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "audioroute_presence_events_total",
			Help: "Number of presence transitions received per peripheral class",
		}, []string{"peripheral"}),
		rejected: f.NewCounter(prometheus.CounterOpts{
			Name: "audioroute_selection_rejected_total",
			Help: "Number of device selections rejected because the device was unavailable",
		}),
		sinkErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "audioroute_sink_errors_total",
			Help: "Number of failed output sink commands",
		}),
		selected: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "audioroute_selected_device",
			Help: "Set to 1 for the currently selected output device",
		}, []string{"device"}),
		present: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "audioroute_peripheral_present",
			Help: "Set to 1 when the peripheral class is connected",
		}, []string{"peripheral"}),
	}
}

func (s *stats) setSelected(d Device) {
	for _, dev := range allDevices {
		v := 0.0
		if dev == d {
			v = 1
		}
		s.selected.WithLabelValues(string(dev)).Set(v)
	}
}

func (s *stats) setPresent(c PeripheralClass, present bool) {
	v := 0.0
	if present {
		v = 1
	}
	s.present.WithLabelValues(string(c)).Set(v)
}

// Gatherer returns the prometheus gatherer with the router metrics.
func (r *Router) Gatherer() prometheus.Gatherer {
	return r.stats.reg
}
