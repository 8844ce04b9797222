package config_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/translateblitz/internal/config"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr string // substring; empty means valid
	}{
		{
			name:    "invalid log level",
			yaml:    "server:\n  log_level: bananas\n",
			wantErr: "server.log_level",
		},
		{
			name:    "negative session ttl",
			yaml:    "server:\n  session_ttl: -1m\n",
			wantErr: "server.session_ttl",
		},
		{
			name:    "rate limit without burst",
			yaml:    "server:\n  rate_limit:\n    rps: 3\n",
			wantErr: "burst",
		},
		{
			name:    "tls missing key",
			yaml:    "server:\n  tls:\n    cert_file: cert.pem\n",
			wantErr: "server.tls",
		},
		{
			name:    "passing score above range",
			yaml:    "game:\n  passing_score: 101\n",
			wantErr: "game.passing_score",
		},
		{
			name:    "difficulty shorter than tick",
			yaml:    "game:\n  tick: 1s\n  difficulties:\n    hard: 500ms\n",
			wantErr: "game.difficulties.hard",
		},
		{
			name:    "unknown grading mode",
			yaml:    "grading:\n  mode: offline\n",
			wantErr: "grading.mode",
		},
		{
			name:    "fallback without primary",
			yaml:    "providers:\n  llm_fallback:\n    name: anyllm\n",
			wantErr: "providers.llm_fallback",
		},
		{
			name:    "unknown settings driver",
			yaml:    "settings:\n  driver: mysql\n",
			wantErr: "settings.driver",
		},
		{
			name:    "sqlite without dsn",
			yaml:    "settings:\n  driver: sqlite\n",
			wantErr: "settings.dsn",
		},
		{
			name: "postgres with dsn",
			yaml: "settings:\n  driver: postgres\n  dsn: postgres://localhost/blitz\n",
		},
		{
			name: "unknown provider name only warns",
			yaml: "providers:\n  llm:\n    name: my-private-gateway\n",
		},
		{
			name: "mock mode without llm",
			yaml: "grading:\n  mode: mock\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error should mention %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_JoinsAllErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
game:
  passing_score: -5
grading:
  mode: whatever
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	for _, want := range []string{"server.log_level", "game.passing_score", "grading.mode"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error should mention %q, got: %v", want, err)
		}
	}
}
