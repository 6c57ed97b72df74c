package pagination

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: 0, want: DefaultLimit},
		{in: -3, want: DefaultLimit},
		{in: 10, want: 10},
		{in: MaxLimit, want: MaxLimit},
		{in: MaxLimit + 50, want: MaxLimit},
	}
	for _, tt := range tests {
		if got := NormalizeLimit(tt.in); got != tt.want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestLimitWithBufferAddsOne(t *testing.T) {
	if got := LimitWithBuffer(10); got != 11 {
		t.Fatalf("expected 11, got %d", got)
	}
	if got := LimitWithBuffer(0); got != DefaultLimit+1 {
		t.Fatalf("expected %d, got %d", DefaultLimit+1, got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 589000000, time.UTC),
		ID:        uuid.New(),
	}

	encoded := EncodeCursor(in)
	if strings.ContainsAny(encoded, "+/=") {
		t.Fatalf("cursor %q is not URL-safe", encoded)
	}

	out, err := ParseCursor(encoded)
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) {
		t.Fatalf("created_at mismatch: got %v want %v", out.CreatedAt, in.CreatedAt)
	}
	if out.ID != in.ID {
		t.Fatalf("id mismatch: got %s want %s", out.ID, in.ID)
	}
}

func TestParseCursorBlankReturnsNil(t *testing.T) {
	cursor, err := ParseCursor("   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cursor != nil {
		t.Fatalf("expected nil cursor, got %+v", cursor)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	for _, value := range []string{"not-base64!!", "bm8tc2VwYXJhdG9y", "MjAyNi0wMy0xNFQwOTowMDowMFp8bm90LWEtdXVpZA"} {
		if _, err := ParseCursor(value); err == nil {
			t.Fatalf("expected error for cursor %q", value)
		}
	}
}
