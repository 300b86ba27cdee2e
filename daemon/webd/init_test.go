package webd

import (
	"os"
	"testing"

	trackfixtesting "github.com/rotblauer/trackfix/testing"
	"github.com/rotblauer/trackfix/params"
)

// newTestWebDaemon creates a new WebDaemon for testing purposes,
// storing runs in a temporary directory removed on cleanup.
func newTestWebDaemon(t *testing.T) *WebDaemon {
	if err := os.MkdirAll(trackfixtesting.DefaultTestDir(), 0770); err != nil {
		t.Fatal(err)
	}
	tmpd, err := os.MkdirTemp(trackfixtesting.DefaultTestDir(), "webd")
	if err != nil {
		t.Fatal(err)
	}
	config := params.DefaultTestWebDaemonConfig()
	config.DataDir = tmpd
	config.Store = true
	daemon, err := NewWebDaemon(config)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := daemon.Close(); err != nil {
			t.Error(err)
		}
		_ = os.RemoveAll(tmpd)
	})
	return daemon
}
