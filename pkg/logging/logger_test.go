package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// decodeLines parses the JSON lines written to buf.
func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("line %q is not JSON: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   LogLevel
		want    zerolog.Level
		wantErr bool
	}{
		{LevelDebug, zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{LevelError, zerolog.ErrorLevel, false},
		{"trace", zerolog.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestNewLogger_ListFields(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelDebug, Output: buf})

	logger := NewLogger("pagination", FieldList, "chats")
	logger.Info().Int(FieldCursor, 2).Int("added", 20).Msg("Page loaded")

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	entry := lines[0]
	if entry[FieldComponent] != "pagination" || entry[FieldList] != "chats" {
		t.Errorf("context fields = %v", entry)
	}
	if entry[FieldCursor] != float64(2) {
		t.Errorf("cursor = %v, want 2", entry[FieldCursor])
	}
	if entry["level"] != "info" || entry["message"] != "Page loaded" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewLogger_OddPairsDropsDanglingKey(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger := NewLogger("session", FieldTarget)
	logger.Info().Msg("Leaving page")

	entry := decodeLines(t, buf)[0]
	if _, ok := entry[FieldTarget]; ok {
		t.Errorf("dangling key logged: %v", entry)
	}
}

func TestSetup_WarnHidesGuardDecisions(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelWarn, Output: buf})

	logger := NewLogger("pages", FieldPage, "search")
	logger.Debug().Msg("Load refused by guard")
	logger.Info().Msg("Page loaded")
	logger.Warn().Str(FieldErrorClass, "server").Msg("Failed to search users")

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want only the warning: %s", len(lines), buf.String())
	}
	if lines[0][FieldErrorClass] != "server" || lines[0][FieldPage] != "search" {
		t.Errorf("warning = %v", lines[0])
	}
}

func TestSetup_UnknownLevelFallsBackToInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: "loud", Output: buf})

	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("global level = %v, want info", zerolog.GlobalLevel())
	}
	if !strings.Contains(buf.String(), `unknown log level \"loud\"`) {
		t.Errorf("no fallback warning in %q", buf.String())
	}
}

func TestSetup_Pretty(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Pretty: true, Output: buf})

	logger := NewLogger("client")
	logger.Info().Str(FieldEndpoint, "/v1/chats").Msg("Executing Skilly request")

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Errorf("pretty output is JSON: %q", out)
	}
	if !strings.Contains(out, "Executing Skilly request") || !strings.Contains(out, "/v1/chats") {
		t.Errorf("output = %q", out)
	}
}

func TestConfigFromEnv(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		wantLevel  LogLevel
		wantPretty bool
	}{
		{"empty", nil, LevelInfo, false},
		{"debug pretty", map[string]string{EnvLevel: "DEBUG", EnvPretty: "true"}, LevelDebug, true},
		{"bad pretty ignored", map[string]string{EnvLevel: "warn", EnvPretty: "sometimes"}, LevelWarn, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ConfigFromEnv(func(k string) string { return tt.env[k] })
			if cfg.Level != tt.wantLevel {
				t.Errorf("Level = %q, want %q", cfg.Level, tt.wantLevel)
			}
			if cfg.Pretty != tt.wantPretty {
				t.Errorf("Pretty = %v, want %v", cfg.Pretty, tt.wantPretty)
			}
			if cfg.Output == nil {
				t.Error("Output is nil")
			}
		})
	}
}
