package main

import (
	"testing"

	"github.com/spf13/viper"

	"github.com/edera-run/workflowd/internal/storage"
)

func TestOpenStorageDefaultsToMemory(t *testing.T) {
	viper.Set("storage", "")
	cache, monitor, err := openStorage()
	if err != nil {
		t.Fatalf("openStorage: %v", err)
	}
	if _, ok := cache.(*storage.Memory); !ok {
		t.Fatalf("expected memory cache, got %T", cache)
	}
	if _, ok := monitor.(*storage.Memory); !ok {
		t.Fatalf("expected memory monitor, got %T", monitor)
	}
}

func TestOpenStorageBoltUsesEmbeddedKeyspaces(t *testing.T) {
	dir := t.TempDir()
	viper.Set("storage", "bolt")
	viper.Set("data", dir+"/data.db")
	defer viper.Set("storage", "")

	cache, monitor, err := openStorage()
	if err != nil {
		t.Fatalf("openStorage: %v", err)
	}
	if _, ok := cache.(*storage.Embedded); !ok {
		t.Fatalf("expected embedded cache, got %T", cache)
	}
	if _, ok := monitor.(*storage.Embedded); !ok {
		t.Fatalf("expected embedded monitor, got %T", monitor)
	}
}

func TestRootCommandFlagDefaults(t *testing.T) {
	flags := rootCmd.PersistentFlags()
	if v, _ := flags.GetString("root"); v == "" {
		t.Fatalf("expected a non-empty default root directory")
	}
	if v, _ := flags.GetString("storage"); v != "memory" {
		t.Fatalf("expected default storage backend memory, got %q", v)
	}
}
