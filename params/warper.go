package params

import (
	"os"
	"path/filepath"
	"time"
)

func filepathJoinTemp(name string) string {
	return filepath.Join(os.TempDir(), name)
}

// WarperConfig configures both the warperd server and warper.RPCClient
// dialers.
type WarperConfig struct {
	Listener ListenerConfig
	// DialTimeout is carried in the config but not read by
	// warper.RPCClient or common.DialRPC; dialing warperd has no timeout
	// of its own.
	DialTimeout time.Duration
}

func DefaultWarperConfig() *WarperConfig {
	return &WarperConfig{
		Listener: ListenerConfig{
			Network: "unix",
			Address: filepathJoinTemp("vtsproxy-warperd.sock"),
		},
		DialTimeout: 5 * time.Second,
	}
}
