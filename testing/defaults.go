package testing

import (
	"os"
	"path/filepath"
)

const DefaultTestDirRoot = "trackfix-test"

func DefaultTestDir() string {
	return filepath.Join(os.TempDir(), DefaultTestDirRoot)
}
