package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type catalogUpdated struct {
	Source string `json:"source"`
	Items  int    `json:"items"`
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[catalogUpdated]([]byte(`{"source":"csv","items":12}`))
	if err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	if got.Source != "csv" || got.Items != 12 {
		t.Errorf("DecodeJSON() = %+v", got)
	}
	if _, err := DecodeJSON[catalogUpdated]([]byte(`{`)); err == nil {
		t.Error("expected error for truncated payload")
	}
}

func TestJSONHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var seen []catalogUpdated
	h := JSONHandler(logger, func(_ context.Context, key string, ev catalogUpdated) error {
		if key != "catalog" {
			t.Errorf("key = %q", key)
		}
		seen = append(seen, ev)
		return nil
	})

	if err := h(context.Background(), []byte("catalog"), []byte(`{"source":"postgres"}`)); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if err := h(context.Background(), []byte("catalog"), []byte(`not json`)); err != nil {
		t.Fatalf("undecodable message must be skipped, got %v", err)
	}
	if len(seen) != 1 || seen[0].Source != "postgres" {
		t.Errorf("seen = %+v", seen)
	}

	boom := errors.New("boom")
	failing := JSONHandler(logger, func(context.Context, string, catalogUpdated) error { return boom })
	if err := failing(context.Background(), nil, []byte(`{}`)); !errors.Is(err, boom) {
		t.Errorf("callback errors must propagate, got %v", err)
	}
}

func TestEncode(t *testing.T) {
	msg, err := encode(Event{Key: "k", Value: catalogUpdated{Source: "csv"}})
	if err != nil {
		t.Fatalf("encode() error = %v", err)
	}
	if string(msg.Key) != "k" || string(msg.Value) != `{"source":"csv","items":0}` {
		t.Errorf("encode() = %s / %s", msg.Key, msg.Value)
	}
	if _, err := encode(Event{Key: "bad", Value: make(chan int)}); err == nil {
		t.Error("expected marshal error")
	}
}
