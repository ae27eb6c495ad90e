package params

import (
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
)

// DatadirRoot is the default parent directory for every persisted
// generator directory.
// go-homedir resolves the user's home directory even when
// cross-compiled or running under an unusual shell (unlike plain
// os.UserHomeDir, which can fail under those conditions).
var DatadirRoot = func() string {
	home, err := homedir.Dir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".vtsproxy")
}()
