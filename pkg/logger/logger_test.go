package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	pkgerrors "github.com/superkart/kart-backend/pkg/errors"
)

func newBufferedLogger(opts Options) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	opts.Output = buf
	if opts.ServiceName == "" {
		opts.ServiceName = "test"
	}
	opts.Level = zerolog.DebugLevel
	return New(opts), buf
}

func TestErrorIncludesContextFieldsAndStack(t *testing.T) {
	log, buf := newBufferedLogger(Options{})

	ctx := log.WithRequestID(context.Background(), "req-123")
	log.Error(ctx, "boom", errors.New("boom"))

	for _, want := range []string{`"request_id"`, `"stack"`} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Fatalf("expected %s in entry %s", want, buf.String())
		}
	}
}

func TestErrorIncludesTypedErrorCode(t *testing.T) {
	log, buf := newBufferedLogger(Options{})

	err := pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	log.Error(context.Background(), "request.error", err)

	if !bytes.Contains(buf.Bytes(), []byte(`"error_code":"CONFLICT"`)) {
		t.Fatalf("expected error_code field, got %s", buf.String())
	}
}

func TestWarnStackToggle(t *testing.T) {
	withStack, withBuf := newBufferedLogger(Options{WarnStack: true})
	withStack.Warn(context.Background(), "warny")
	if !bytes.Contains(withBuf.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("expected stack when warn stack enabled, got %s", withBuf.String())
	}

	withoutStack, withoutBuf := newBufferedLogger(Options{})
	withoutStack.Warn(context.Background(), "warny")
	if bytes.Contains(withoutBuf.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("expected no stack when warn stack disabled, got %s", withoutBuf.String())
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected info level for blank input, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.InfoLevel {
		t.Fatalf("expected info level for invalid input, got %v", lvl)
	}
	if lvl := ParseLevel("warn"); lvl != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %v", lvl)
	}
}
