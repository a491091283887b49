// Package metrics exports engine and bridge activity as prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "canvaszoom"

// Recorder implements the engine and bridge recorder interfaces on a
// private registry.
type Recorder struct {
	reg      *prometheus.Registry
	gestures *prometheus.CounterVec
	frames   *prometheus.CounterVec
	canvases prometheus.Gauge
	sessions prometheus.Gauge
}

// New creates a Recorder with Go runtime collectors registered.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		gestures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gestures_total",
			Help:      "Applied gestures by kind.",
		}, []string{"gesture"}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_frames_total",
			Help:      "Bridge frames by direction and type.",
		}, []string{"direction", "type"}),
		canvases: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "canvases",
			Help:      "Attached canvases across all pages.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bridge_sessions",
			Help:      "Connected pages.",
		}),
	}
	r.reg.MustRegister(
		r.gestures, r.frames, r.canvases, r.sessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Gesture counts one applied gesture.
func (r *Recorder) Gesture(name string) { r.gestures.WithLabelValues(name).Inc() }

// Canvases sets the attached canvas count.
func (r *Recorder) Canvases(n int) { r.canvases.Set(float64(n)) }

// Sessions sets the connected page count.
func (r *Recorder) Sessions(n int) { r.sessions.Set(float64(n)) }

// Frame counts one bridge frame.
func (r *Recorder) Frame(direction, frameType string) {
	r.frames.WithLabelValues(direction, frameType).Inc()
}

// ObserveLoop exports the task and frame counters of a scheduler loop.
func (r *Recorder) ObserveLoop(stats func() (tasks, frames uint64)) {
	r.reg.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loop_tasks_total",
			Help:      "Tasks run on the interaction loop.",
		}, func() float64 {
			tasks, _ := stats()
			return float64(tasks)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loop_frames_total",
			Help:      "Frame callbacks run on the interaction loop.",
		}, func() float64 {
			_, frames := stats()
			return float64(frames)
		}),
	)
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Handler serves the registry in the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
