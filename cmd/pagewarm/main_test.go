package main

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestRunReturnsStoreErrors(t *testing.T) {
	t.Setenv("PAGEWARM_BASE_URL", "https://docs.example.org")
	t.Setenv("PAGEWARM_SITE_VERSION", "1.0.0")
	t.Setenv("PAGEWARM_REDIS_ADDR", "")
	// sqlite cannot create a database under a directory that does not exist
	t.Setenv("PAGEWARM_DB", filepath.Join(t.TempDir(), "missing", "pagecache.db"))

	if err := run(quietLogger(), "", ""); err == nil {
		t.Fatalf("expected an error from an unopenable store")
	}
}

func TestRunReturnsSnapshotErrors(t *testing.T) {
	t.Setenv("PAGEWARM_BASE_URL", "https://docs.example.org")
	t.Setenv("PAGEWARM_SITE_VERSION", "1.0.0")
	t.Setenv("PAGEWARM_REDIS_ADDR", "")
	t.Setenv("PAGEWARM_DB", filepath.Join(t.TempDir(), "pagecache.db"))

	// a missing import snapshot must surface as an error, not an exit, so the
	// deferred cache Close still runs
	err := run(quietLogger(), filepath.Join(t.TempDir(), "absent.snap"), "")
	if err == nil {
		t.Fatalf("expected an error for a missing snapshot")
	}
}
