package params

// AdminConfig configures the introspection-only admin HTTP/WS surface,
// a separate, smaller listener for operators than the tile-serving
// HTTP surface.
type AdminConfig struct {
	ListenerConfig
}

func DefaultAdminConfig() *AdminConfig {
	return &AdminConfig{
		ListenerConfig: ListenerConfig{
			Network: "tcp",
			Address: "localhost:8900",
		},
	}
}
