package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/illenko/blacklight/internal/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestInitWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := run(t, "init", "--config", path)
	if err != nil {
		t.Fatalf("init error: %v", err)
	}
	if !strings.Contains(out, "Created "+path) {
		t.Errorf("output = %q", out)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(b) != config.DefaultFile {
		t.Error("written file differs from the default config")
	}

	if _, err := run(t, "init", "--config", path); err == nil {
		t.Error("second init should refuse to overwrite")
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if out != "blacklight dev\n" {
		t.Errorf("output = %q", out)
	}
}

func TestFlagValidationHappensBeforeConnecting(t *testing.T) {
	tests := map[string][]string{
		"scan format":  {"scan", "--format", "xml"},
		"scan fail-on": {"scan", "--format", "text", "--fail-on", "urgent"},
		"tree args":    {"tree"},
		"save no plan": {"simulate", "--save", "drop_metric:up"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := run(t, args...); err == nil {
				t.Errorf("%v: expected error", args)
			}
		})
	}
}
