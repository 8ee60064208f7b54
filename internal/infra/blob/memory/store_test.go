package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"cheeseshop/internal/blob/core"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, fmt.Errorf("fail") }

func TestStoreIsolatesCallers(t *testing.T) {
	store := New()
	ctx := context.Background()
	md := map[string]string{"a": "1"}
	if _, err := store.Put(ctx, "k", bytes.NewReader([]byte("v")), core.PutOptions{Metadata: md}); err != nil {
		t.Fatalf("put: %v", err)
	}
	md["a"] = "mutated"

	info, rc, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if info.Metadata["a"] != "1" {
		t.Fatalf("metadata leaked caller mutation: %v", info.Metadata)
	}
	info.Metadata["a"] = "again"
	head, err := store.Head(ctx, "k")
	if err != nil || head.Metadata["a"] != "1" {
		t.Fatalf("head metadata: %v %v", head.Metadata, err)
	}
	b, _ := io.ReadAll(rc)
	if string(b) != "v" {
		t.Fatalf("unexpected body %q", b)
	}
}

func TestStoreErrors(t *testing.T) {
	store := New()
	ctx := context.Background()
	if store.Driver() != core.DriverMemory {
		t.Fatalf("expected memory driver")
	}
	if _, err := store.Put(ctx, "bad", failingReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
	if _, err := store.Head(ctx, "bad"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("failed put must not store: %v", err)
	}
	if _, err := store.SignedURL(ctx, "k", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
	ctx2, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := store.Put(ctx2, "k", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}
