package main

import (
	"context"
	"testing"
	"time"
)

func TestGetConfigPath(t *testing.T) {
	t.Run("default path", func(t *testing.T) {
		t.Setenv("VENTANA_CONFIG", "")
		if got := getConfigPath(); got != defaultConfigPath {
			t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("VENTANA_CONFIG", "/etc/ventana/config.yaml")
		if got := getConfigPath(); got != "/etc/ventana/config.yaml" {
			t.Errorf("getConfigPath() = %q", got)
		}
	})
}

func TestRun_MissingConfig(t *testing.T) {
	t.Setenv("VENTANA_CONFIG", "/nonexistent/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Error("run() succeeded without a config file")
	}
}
