package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func decodeLastLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	lines := strings.Split(buf.String(), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}

		var payload map[string]any
		if err := json.Unmarshal([]byte(lines[i]), &payload); err != nil {
			t.Fatalf("failed to decode log line: %v", err)
		}
		return payload
	}

	t.Fatal("no log lines found")
	return nil
}

func TestInfoInjectsServiceAndTimestamp(t *testing.T) {
	var buf bytes.Buffer
	log := New("matchcore", &buf)

	log.Info("book updated")

	payload := decodeLastLogLine(t, &buf)
	if payload["service"] != "matchcore" {
		t.Fatalf("expected service to be injected, got %v", payload["service"])
	}
	if payload["timestamp"] == nil {
		t.Fatal("expected timestamp to be injected")
	}
	if payload["level"] != "info" {
		t.Fatalf("expected level to be info, got %v", payload["level"])
	}
	if payload["message"] != "book updated" {
		t.Fatalf("expected message to match, got %v", payload["message"])
	}
}

func TestInfofIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New("matchcore", &buf)

	log.Infof("trade created", map[string]interface{}{
		"symbol": "BTCUSDT",
		"qty":    float64(5),
	})

	payload := decodeLastLogLine(t, &buf)
	if payload["symbol"] != "BTCUSDT" {
		t.Fatalf("expected symbol field, got %v", payload["symbol"])
	}
	if payload["qty"] != float64(5) {
		t.Fatalf("expected qty field, got %v", payload["qty"])
	}
}

func TestWithFieldAndWithError(t *testing.T) {
	var buf bytes.Buffer
	log := New("matchcore", &buf)

	log.WithField("orderId", 42).WithError(errors.New("boom")).Error("submit failed")

	payload := decodeLastLogLine(t, &buf)
	if payload["orderId"] != float64(42) {
		t.Fatalf("expected orderId field, got %v", payload["orderId"])
	}
	if payload["error"] != "boom" {
		t.Fatalf("expected error field, got %v", payload["error"])
	}
	if payload["level"] != "error" {
		t.Fatalf("expected level error, got %v", payload["level"])
	}
}

func TestSetLevelSuppressesLowerLevels(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	log := New("matchcore", &buf)

	SetLevel("error")
	log.Info("should be dropped")
	if strings.TrimSpace(buf.String()) != "" {
		t.Fatalf("expected info to be suppressed, got %q", buf.String())
	}

	log.Error("kept")
	payload := decodeLastLogLine(t, &buf)
	if payload["message"] != "kept" {
		t.Fatalf("expected error to pass through, got %v", payload["message"])
	}
}

func TestSetLevelIgnoresInvalid(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	log := New("matchcore", &buf)

	SetLevel("nonsense")
	log.Debug("still logged")

	payload := decodeLastLogLine(t, &buf)
	if payload["message"] != "still logged" {
		t.Fatalf("expected debug to pass through, got %v", payload["message"])
	}
}
