// Package metrics provides Prometheus metrics collection for modeltype.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/artpar/modeltype/ports"
)

const namespace = "modeltype"

// Collector holds all Prometheus metrics for modeltype. It implements
// ports.Metrics so an engine can report to it directly.
type Collector struct {
	// Model metrics
	ModelsDefined *prometheus.CounterVec
	ModelsRemoved *prometheus.CounterVec
	ModelsActive  prometheus.Gauge

	// Value metrics
	Validations *prometheus.CounterVec
	Instances   *prometheus.CounterVec
	Imports     *prometheus.CounterVec
	Exports     *prometheus.CounterVec

	// Reload metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return newCollector(promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry creates a collector registered with reg. Useful for
// testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	return newCollector(promauto.With(reg))
}

func newCollector(factory promauto.Factory) *Collector {
	return &Collector{
		ModelsDefined: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "models_defined_total",
				Help:      "Total number of model definitions",
			},
			[]string{"model"},
		),
		ModelsRemoved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "models_undefined_total",
				Help:      "Total number of models undefined",
			},
			[]string{"model"},
		),
		ModelsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "models_active",
				Help:      "Number of models currently defined",
			},
		),
		Validations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validations_total",
				Help:      "Total number of type validations by type and result",
			},
			[]string{"type", "result"},
		),
		Instances: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instances_created_total",
				Help:      "Total number of model instances created",
			},
			[]string{"model"},
		),
		Imports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "imports_total",
				Help:      "Total number of JSON imports by model and result",
			},
			[]string{"model", "result"},
		),
		Exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "Total number of JSON exports by model",
			},
			[]string{"model"},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful schema and config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of schema and config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful reload",
			},
		),
	}
}

func (c *Collector) ModelDefined(model string) {
	c.ModelsDefined.WithLabelValues(model).Inc()
	c.ModelsActive.Inc()
}

func (c *Collector) ModelUndefined(model string) {
	c.ModelsRemoved.WithLabelValues(model).Inc()
	c.ModelsActive.Dec()
}

func (c *Collector) InstanceCreated(model string) {
	c.Instances.WithLabelValues(model).Inc()
}

func (c *Collector) Validated(typeName string, err error) {
	c.Validations.WithLabelValues(typeName, result(err)).Inc()
}

func (c *Collector) Imported(model string, err error) {
	c.Imports.WithLabelValues(model, result(err)).Inc()
}

func (c *Collector) Exported(model string) {
	c.Exports.WithLabelValues(model).Inc()
}

// RecordReload records the outcome of a schema or config reload.
func (c *Collector) RecordReload(err error) {
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.SetToCurrentTime()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Ensure interface compliance.
var _ ports.Metrics = (*Collector)(nil)
