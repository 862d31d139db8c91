package logx

import (
	"bytes"
	"strings"
	"testing"
)

// Not parallel: both tests swap the global logger.

func TestInitWriterLevels(t *testing.T) {
	var buf bytes.Buffer

	InitWriter(&buf, Config{Quiet: true})
	Info().Msg("hidden")
	Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("quiet logger wrote info line: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("quiet logger dropped warn line: %s", out)
	}
}

func TestSessionLoggerTagsSessionID(t *testing.T) {
	var buf bytes.Buffer

	InitWriter(&buf, Config{Debug: true})
	logger := Session("abc-123")
	logger.Debug().Msg("routed")

	if !strings.Contains(buf.String(), `"session_id":"abc-123"`) {
		t.Fatalf("missing session id: %s", buf.String())
	}
}
