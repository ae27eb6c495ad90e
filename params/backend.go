package params

import "path/filepath"

// BackendConfig configures the resource catalogue backend.
type BackendConfig struct {
	Kind string // "fs" or "s3"

	// FSRoot is the parent directory of <referenceFrame>/<group>/<id>/
	// trees, used when Kind == "fs".
	FSRoot string

	// S3Bucket/S3Key locate a single catalogue snapshot object, used
	// when Kind == "s3".
	S3Bucket string
	S3Key    string
	S3Region string
}

func DefaultBackendConfig() *BackendConfig {
	return &BackendConfig{
		Kind:   "fs",
		FSRoot: filepath.Join(DatadirRoot, "resources"),
	}
}
