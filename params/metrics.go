package params

// MetricsConfig configures the InfluxDB metrics exporter (metricsx
// package). Disabled by default; fire-and-forget best-effort when
// enabled.
type MetricsConfig struct {
	Enabled bool
	URL     string
	Token   string
	Org     string
	Bucket  string
}

func DefaultMetricsConfig() *MetricsConfig {
	return &MetricsConfig{
		Enabled: false,
		URL:     "http://localhost:8086",
		Bucket:  "vtsproxy",
	}
}
