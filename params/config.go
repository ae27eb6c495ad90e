package params

// Config is the root configuration composed from each component's own
// DefaultXConfig(), the same way per-daemon configs compose into
// cmd-level viper bindings.
type Config struct {
	Calipers *CalipersConfig
	Warper   *WarperConfig
	Registry *RegistryConfig
	Backend  *BackendConfig
	Admin    *AdminConfig
	Metrics  *MetricsConfig
}

func DefaultConfig() *Config {
	return &Config{
		Calipers: DefaultCalipersConfig(),
		Warper:   DefaultWarperConfig(),
		Registry: DefaultRegistryConfig(),
		Backend:  DefaultBackendConfig(),
		Admin:    DefaultAdminConfig(),
		Metrics:  DefaultMetricsConfig(),
	}
}
