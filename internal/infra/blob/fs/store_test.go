package fs

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"surveyscope/internal/blob/core"
)

func TestPutGetRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	info, err := s.Put(ctx, "exports/a.csv", strings.NewReader("state,gender\n"), core.PutOptions{ContentType: "text/csv", Metadata: map[string]string{"rows": "1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len("state,gender\n")) || info.ContentType != "text/csv" {
		t.Fatalf("info: %+v", info)
	}

	got, rc, err := s.Get(ctx, "exports/a.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = rc.Close() }()
	payload, _ := io.ReadAll(rc)
	if string(payload) != "state,gender\n" {
		t.Fatalf("payload: %q", payload)
	}
	if got.Metadata["rows"] != "1" {
		t.Fatalf("metadata: %+v", got.Metadata)
	}
}

func TestPutCreateOnly(t *testing.T) {
	s, _ := New(t.TempDir())
	ctx := context.Background()
	if _, err := s.Put(ctx, "k", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "k", strings.NewReader("y"), core.PutOptions{}); err == nil {
		t.Fatal("expected create-only failure")
	}
}

func TestKeySanitization(t *testing.T) {
	s, _ := New(t.TempDir())
	ctx := context.Background()
	for _, key := range []string{"", "  ", "../escape", "/abs", "a/../../b"} {
		if _, err := s.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("key %q should be rejected", key)
		}
	}
}

func TestGetMissing(t *testing.T) {
	s, _ := New(t.TempDir())
	_, _, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s, _ := New(t.TempDir())
	ctx := context.Background()
	_, _ = s.Put(ctx, "k", strings.NewReader("x"), core.PutOptions{})
	existed, err := s.Delete(ctx, "k")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	existed, err = s.Delete(ctx, "k")
	if err != nil || existed {
		t.Fatalf("second delete: existed=%v err=%v", existed, err)
	}
}

func TestListWithPrefix(t *testing.T) {
	s, _ := New(t.TempDir())
	ctx := context.Background()
	_, _ = s.Put(ctx, "exports/a", strings.NewReader("1"), core.PutOptions{})
	_, _ = s.Put(ctx, "exports/b", strings.NewReader("2"), core.PutOptions{})
	_, _ = s.Put(ctx, "other/c", strings.NewReader("3"), core.PutOptions{})

	infos, err := s.List(ctx, "exports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "exports/a" || infos[1].Key != "exports/b" {
		t.Fatalf("list: %+v", infos)
	}
}
