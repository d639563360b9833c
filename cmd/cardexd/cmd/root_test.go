package cmd

import (
	"testing"
)

// TestNewLogger tests logger construction across filter levels
func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		logger := newLogger(level)
		if logger == nil {
			t.Fatalf("newLogger(%q) returned nil", level)
		}
		logger.Info("logger check", "level", level)
		logger.Error("logger check", "level", level)
	}
}

// TestRootCmd tests command registration
func TestRootCmd(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"serve", "version"} {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing %s command", name)
		}
	}
}
