package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestZerologLogger_EmitsKeyValuePairs(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(zerolog.New(&buf))
	ctx := context.Background()

	log.Info(ctx, "hello", "conv", "c1", "attempts", 2)

	out := buf.String()
	for _, s := range []string{`"message":"hello"`, `"conv":"c1"`, `"attempts":2`} {
		if !strings.Contains(out, s) {
			t.Fatalf("expected %q in output, got:\n%s", s, out)
		}
	}
}

func TestZerologLogger_With_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(zerolog.New(&buf))

	log2 := log.With("user", "alice")
	log2.Warn(context.Background(), "careful")

	out := buf.String()
	if !strings.Contains(out, `"user":"alice"`) {
		t.Fatalf("expected bound attribute in output, got:\n%s", out)
	}
	if !strings.Contains(out, `"level":"warn"`) {
		t.Fatalf("expected warn level in output, got:\n%s", out)
	}
}
