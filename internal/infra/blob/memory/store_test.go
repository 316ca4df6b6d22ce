package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"surveyscope/internal/blob/core"
)

func TestPutGetDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	info, err := s.Put(ctx, "k", strings.NewReader("payload"), core.PutOptions{ContentType: "text/plain"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 7 || info.ContentType != "text/plain" {
		t.Fatalf("info: %+v", info)
	}

	_, rc, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	payload, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(payload) != "payload" {
		t.Fatalf("payload: %q", payload)
	}

	existed, err := s.Delete(ctx, "k")
	if err != nil || !existed {
		t.Fatalf("delete: %v %v", existed, err)
	}
	if _, _, err := s.Get(ctx, "k"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutCreateOnly(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.Put(ctx, "k", strings.NewReader("a"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "k", strings.NewReader("b"), core.PutOptions{}); err == nil {
		t.Fatal("expected create-only failure")
	}
}

func TestListSorted(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _ = s.Put(ctx, "b", strings.NewReader("2"), core.PutOptions{})
	_, _ = s.Put(ctx, "a", strings.NewReader("1"), core.PutOptions{})
	infos, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "a" || infos[1].Key != "b" {
		t.Fatalf("list: %+v", infos)
	}
}
