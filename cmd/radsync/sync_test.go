package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"
)

func TestResolveRID(t *testing.T) {
	logger := log.New(io.Discard, "", 0)

	detected := func(ctx context.Context) (string, error) {
		return "rad:zDetected", nil
	}
	failing := func(ctx context.Context) (string, error) {
		return "", fmt.Errorf("rad binary not in PATH")
	}

	if got := resolveRID(context.Background(), "rad:zConfigured", detected, logger); got != "rad:zConfigured" {
		t.Errorf("configured RID must win, got %q", got)
	}
	if got := resolveRID(context.Background(), "", detected, logger); got != "rad:zDetected" {
		t.Errorf("empty RID must fall back to detection, got %q", got)
	}
	if got := resolveRID(context.Background(), "", failing, logger); got != "" {
		t.Errorf("detection failure must yield empty RID, got %q", got)
	}
}
