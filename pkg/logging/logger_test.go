package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// lines decodes the JSON log lines written to buf.
func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("log line %q is not JSON: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	return out
}

func TestDefaultConfig_WritesToStderr(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Output != os.Stderr {
		t.Error("default output should be stderr so collect output on stdout stays clean")
	}
	if cfg.Level != LevelInfo || cfg.Pretty {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
}

func TestSetup_NilOutputUsesStderr(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	stderr := os.Stderr
	os.Stderr = w
	t.Cleanup(func() { os.Stderr = stderr })

	logger := Setup(Config{Level: LevelInfo})
	logger.Info().Str("step", "fetch-users").Msg("Step started")
	w.Close()

	got, _ := io.ReadAll(r)
	if !strings.Contains(string(got), `"step":"fetch-users"`) {
		t.Errorf("stderr = %q", got)
	}
}

func TestRunFields(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	executor := WithRun(NewLogger("executor"), "6f1c")
	executor.Info().Str("step", "fetch-requests").Msg("Step completed")
	collector := NewLogger("collector")
	collector.Info().Int("entities", 14).Msg("Collection written")

	got := lines(t, buf)
	if len(got) != 2 {
		t.Fatalf("got %d lines, want 2", len(got))
	}
	if got[0]["component"] != "executor" || got[0]["run_id"] != "6f1c" || got[0]["step"] != "fetch-requests" {
		t.Errorf("executor line = %v", got[0])
	}
	if got[1]["component"] != "collector" {
		t.Errorf("collector line = %v", got[1])
	}
	if _, ok := got[1]["run_id"]; ok {
		t.Error("run_id should not leak into loggers created without WithRun")
	}
	if _, ok := got[0]["time"]; !ok {
		t.Error("lines should carry a timestamp")
	}
}

func TestLevelFromViper(t *testing.T) {
	tests := []struct {
		value  string
		debug  bool
		info   bool
		warned bool
	}{
		{"debug", true, true, true},
		{"INFO", false, true, true},
		{" warning ", false, false, true},
		{"error", false, false, false},
		{"", false, true, true},
		{"chatty", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			v := viper.New()
			v.Set("logging.level", tt.value)

			buf := &bytes.Buffer{}
			Setup(Config{Level: LogLevel(v.GetString("logging.level")), Output: buf})
			logger := NewLogger("spoke-client")
			logger.Debug().Msg("Fetching page")
			logger.Info().Msg("Pagination complete")
			logger.Warn().Msg("Step skipped")

			out := buf.String()
			if strings.Contains(out, "Fetching page") != tt.debug {
				t.Errorf("debug written = %v, want %v", !tt.debug, tt.debug)
			}
			if strings.Contains(out, "Pagination complete") != tt.info {
				t.Errorf("info written = %v, want %v", !tt.info, tt.info)
			}
			if strings.Contains(out, "Step skipped") != tt.warned {
				t.Errorf("warn written = %v, want %v", !tt.warned, tt.warned)
			}
		})
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func TestSetup_Pretty(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Pretty: true, Output: buf})
	collector := NewLogger("collector")
	collector.Info().Msg("Serving metrics")

	out := buf.String()
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("pretty output should not be JSON: %q", out)
	}
	if !strings.Contains(out, "Serving metrics") {
		t.Errorf("output = %q", out)
	}
}
