// Package common provides shared test infrastructure
package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// RequireDocker skips the test unless container tests are enabled.
func RequireDocker(t *testing.T) {
	t.Helper()
	if os.Getenv("FLEECE_TEST_DOCKER") != "true" {
		t.Skip("Docker tests disabled (set FLEECE_TEST_DOCKER=true to enable)")
	}
}

// ResultsDir creates tests/results/{datetime}-{test-name} for saved output.
func ResultsDir(t *testing.T) string {
	t.Helper()
	datetime := time.Now().Format("20060102-150405")
	name := filepath.Clean(filepath.FromSlash(t.Name()))
	dir := filepath.Join(findProjectRoot(), "tests", "results", datetime+"-"+filepath.Base(name))
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create results dir: %v", err)
	}
	return dir
}

// findProjectRoot walks up directories to find go.mod
func findProjectRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "."
		}
		dir = parent
	}
}
