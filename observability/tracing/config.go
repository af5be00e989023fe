package tracing

import "time"

const reconnectionPeriod = 5 * time.Second

// Config configures the OTLP trace exporter.
type Config struct {
	// Disable installs a no-op tracer provider.
	Disable bool `yaml:"disable"`

	ExporterHost string `yaml:"exporter_host" default:"localhost"`
	ExporterPort int    `yaml:"exporter_port" default:"4317"`

	// SampleRate is the fraction of root traces that are recorded.
	SampleRate float64 `yaml:"sample_rate" default:"1" validate:"gte=0,lte=1"`

	// Tags are added to every span as resource attributes.
	Tags map[string]string `yaml:"tags"`
}
