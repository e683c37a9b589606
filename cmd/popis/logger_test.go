package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelRouter(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger, cleanup, err := newLogger(&stdout, &stderr, "")
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	defer cleanup()

	logger.Debug("hidden")
	logger.Info("saved", "id", "abc")
	logger.Warn("rejected")
	logger.With("op", "load").Error("failed")

	if strings.Contains(stdout.String(), "hidden") {
		t.Error("debug should be dropped")
	}
	if !strings.Contains(stdout.String(), "saved") || !strings.Contains(stdout.String(), "rejected") {
		t.Errorf("expected info and warn on stdout, got %q", stdout.String())
	}
	if strings.Contains(stdout.String(), "failed") {
		t.Error("error should not go to stdout")
	}
	if !strings.Contains(stderr.String(), "failed") || !strings.Contains(stderr.String(), "op=load") {
		t.Errorf("expected error with attrs on stderr, got %q", stderr.String())
	}
}

func TestLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "popis.log")
	var stdout, stderr bytes.Buffer
	logger, cleanup, err := newLogger(&stdout, &stderr, path)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}

	logger.Info("one")
	logger.Log(context.Background(), slog.LevelError, "two")
	cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(data), "one") || !strings.Contains(string(data), "two") {
		t.Errorf("expected both levels in file, got %q", data)
	}
}

func TestOverride(t *testing.T) {
	v := "config"
	override(&v, "")
	if v != "config" {
		t.Errorf("empty flag should keep value, got %q", v)
	}
	override(&v, "flag")
	if v != "flag" {
		t.Errorf("expected flag value, got %q", v)
	}
}
