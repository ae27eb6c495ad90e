package params

// CalipersConfig configures the calipers engine and its CLI.
type CalipersConfig struct {
	InvGsdScale       float64
	TileFractionLimit float64
	TileSize          float64
	RegistryPath      string
}

func DefaultCalipersConfig() *CalipersConfig {
	return &CalipersConfig{
		InvGsdScale:       3.0,
		TileFractionLimit: 32.0,
		TileSize:          256,
	}
}
