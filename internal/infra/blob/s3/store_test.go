package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"cheeseshop/internal/blob/core"
)

func TestMockStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()
	if store.Driver() != core.DriverS3 {
		t.Fatalf("expected s3 driver, got %s", store.Driver())
	}
	if store.Bucket() != mockBucket {
		t.Fatalf("unexpected bucket %s", store.Bucket())
	}

	payload := []byte("producer_id,kind\n1,Brie\n")
	info, err := store.Put(ctx, "exports/x/catalog.csv", bytes.NewReader(payload), core.PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"export": "x"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), info.Size)
	}
	if info.ContentType != "text/csv" {
		t.Fatalf("unexpected content type %q", info.ContentType)
	}

	if _, err := store.Put(ctx, "exports/x/catalog.csv", bytes.NewReader(payload), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	_, rc, err := store.Get(ctx, "exports/x/catalog.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if !bytes.Equal(got, payload) {
		t.Fatalf("unexpected body %q", got)
	}

	if _, err := store.Put(ctx, "exports/y/catalog.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	list, err := store.List(ctx, "exports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "exports/x/catalog.csv" || list[1].Key != "exports/y/catalog.json" {
		t.Fatalf("unexpected list %+v", list)
	}

	url, err := store.SignedURL(ctx, "exports/x/catalog.csv", core.SignedURLOptions{Expiry: time.Minute})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !strings.Contains(url, "exports/x/catalog.csv") || !strings.Contains(url, "X-Amz-Signature") {
		t.Fatalf("unexpected signed url %s", url)
	}

	removed, err := store.Delete(ctx, "exports/x/catalog.csv")
	if err != nil || !removed {
		t.Fatalf("delete: removed=%v err=%v", removed, err)
	}
	removed, err = store.Delete(ctx, "exports/x/catalog.csv")
	if err != nil || removed {
		t.Fatalf("second delete: removed=%v err=%v", removed, err)
	}
	if _, err := store.Head(ctx, "exports/x/catalog.csv"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected bucket error")
	}
}

func TestNewWithStaticCredentials(t *testing.T) {
	store, err := New(context.Background(), Config{
		Bucket:          "catalog",
		Endpoint:        "http://localhost:9000",
		PathStyle:       true,
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	url, err := store.SignedURL(context.Background(), "exports/a/catalog.json", core.SignedURLOptions{})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !strings.HasPrefix(url, "http://localhost:9000/catalog/exports/a/catalog.json") {
		t.Fatalf("unexpected url %s", url)
	}
}

func TestDecodeChunked(t *testing.T) {
	body, ok := decodeChunked([]byte("5\r\nhello\r\n0\r\nx-amz-checksum-crc32:abc\r\n\r\n"))
	if !ok || string(body) != "hello" {
		t.Fatalf("decode: ok=%v body=%q", ok, body)
	}
	if _, ok := decodeChunked([]byte(`{"plain":true}`)); ok {
		t.Fatal("plain body must not decode")
	}
}
