package observability

import (
	"bytes"
	"strings"
	"testing"
)

func TestInitLoggerToTagsApp(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLoggerTo(&buf, "settingsd")
	logger.Info().Str("path", "/settings").Msg("http_request")

	out := buf.String()
	if !strings.Contains(out, "settingsd") || !strings.Contains(out, "http_request") {
		t.Fatalf("unexpected log output: %q", out)
	}
}
