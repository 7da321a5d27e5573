package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/naveenspark/glitchcity/internal/config"
	"github.com/naveenspark/glitchcity/internal/scheduler"
	"github.com/naveenspark/glitchcity/internal/session"
	"github.com/naveenspark/glitchcity/pkg/domain"
	"github.com/naveenspark/glitchcity/pkg/generation"
)

// quietConfig is the default world with instant, deterministic replies:
// only mentions and replies draw a response.
func quietConfig() *config.Config {
	cfg := config.Default()
	cfg.Scheduler = scheduler.Tuning{}
	cfg.Orchestrator.MinTyping = 0
	cfg.Targeting.ContinuityChance = 0
	cfg.Targeting.GreetingChance = 0
	cfg.Targeting.AmbientChance = 0
	return cfg
}

func newTestWorld(t *testing.T, reply string) *world {
	t.Helper()
	gen := generation.Func(func(context.Context, generation.Request) (generation.Response, error) {
		return generation.Response{Text: reply}, nil
	})
	w, err := buildWith(context.Background(), quietConfig(), zap.NewNop(), 1, gen)
	if err != nil {
		t.Fatalf("buildWith: %v", err)
	}
	t.Cleanup(func() { w.close() }) //nolint:errcheck
	return w
}

func TestSayPrintsReplies(t *testing.T) {
	w := newTestWorld(t, "fresh decks in the back room")
	var out bytes.Buffer
	if err := say(context.Background(), &out, w.session, "@NeonViper got anything new?", sayOptions{}); err != nil {
		t.Fatalf("say: %v", err)
	}
	got := out.String()
	for _, want := range []string{"CyberDrifter", "got anything new?", "NeonViper", "fresh decks in the back room"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output, got:\n%s", want, got)
		}
	}
}

func TestSayNobodyAnswers(t *testing.T) {
	w := newTestWorld(t, "unused")
	var out bytes.Buffer
	if err := say(context.Background(), &out, w.session, "just thinking out loud", sayOptions{}); err != nil {
		t.Fatalf("say: %v", err)
	}
	if !strings.Contains(out.String(), "nobody answers") {
		t.Errorf("expected 'nobody answers', got:\n%s", out.String())
	}
}

func TestSayInOtherChannel(t *testing.T) {
	w := newTestWorld(t, "copy that")
	var out bytes.Buffer
	if err := say(context.Background(), &out, w.session, "@Code_Sensei status?", sayOptions{channel: "c5"}); err != nil {
		t.Fatalf("say: %v", err)
	}
	msgs := w.store.Messages("c5")
	if len(msgs) != 2 || msgs[1].UserID != "u3" {
		t.Fatalf("c5 = %+v, want the message and Code_Sensei's reply", msgs)
	}
}

func TestSayChannelErrors(t *testing.T) {
	tests := []struct {
		channel string
		want    error
	}{
		{"vc1", session.ErrNotTextChannel},
		{"nope", session.ErrUnknownChannel},
	}
	for _, tt := range tests {
		t.Run(tt.channel, func(t *testing.T) {
			w := newTestWorld(t, "unused")
			err := say(context.Background(), &bytes.Buffer{}, w.session, "hello", sayOptions{channel: tt.channel})
			if !errors.Is(err, tt.want) {
				t.Errorf("say in %s: err = %v, want %v", tt.channel, err, tt.want)
			}
		})
	}
}

func TestSayEmptyMessage(t *testing.T) {
	w := newTestWorld(t, "unused")
	err := say(context.Background(), &bytes.Buffer{}, w.session, "   ", sayOptions{})
	if !errors.Is(err, session.ErrEmptyMessage) {
		t.Errorf("err = %v, want ErrEmptyMessage", err)
	}
}

func TestSetup(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GLITCHCITY_PROVIDER", "")
	t.Setenv("GLITCHCITY_LOG_LEVEL", "")

	t.Run("missing file uses defaults", func(t *testing.T) {
		cfg, logger, err := setup(rootFlags{
			configPath:  filepath.Join(dir, "missing.yaml"),
			logFile:     filepath.Join(dir, "logs", "test.log"),
			metricsAddr: "127.0.0.1:0",
		}, "")
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
		logger.Info("hello")
		logger.Sync() //nolint:errcheck
		if cfg.Metrics.Addr != "127.0.0.1:0" {
			t.Errorf("metrics addr = %q, want the flag value", cfg.Metrics.Addr)
		}
		if _, err := os.Stat(filepath.Join(dir, "logs", "test.log")); err != nil {
			t.Errorf("log file not created: %v", err)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		if err := os.WriteFile(path, []byte("generation:\n  provider: carrier-pigeon\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, _, err := setup(rootFlags{configPath: path}, ""); err == nil || !strings.Contains(err.Error(), "invalid config") {
			t.Errorf("err = %v, want invalid config", err)
		}
	})
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out.String(), "G L I T C H C I T Y") || !strings.Contains(out.String(), version) {
		t.Errorf("unexpected version output:\n%s", out.String())
	}
}

func TestPersonasCommand(t *testing.T) {
	dir := t.TempDir()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"personas", "--config", filepath.Join(dir, "none.yaml"), "--log-file", filepath.Join(dir, "x.log")})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("personas: %v", err)
	}
	got := out.String()
	for _, want := range []string{"NeonViper", "Code_Sensei", "Pixel_Punk", "offline", "BOT"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in personas output, got:\n%s", want, got)
		}
	}
	if strings.Contains(got, "CyberDrifter") {
		t.Error("the human should not be listed as a persona")
	}
}

func TestPrintBanner(t *testing.T) {
	var out bytes.Buffer
	printBanner(&out, "v1.2.3", func(int) int { return 0 })
	got := out.String()
	for _, want := range []string{"v1.2.3", cityGreetings[0], "glitchcity say", "glitchcity personas"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in banner, got:\n%s", want, got)
		}
	}
}

func TestPrintPersonas(t *testing.T) {
	var out bytes.Buffer
	printPersonas(&out, []domain.User{
		{ID: "u2", Username: "NeonViper", Discriminator: "1234", Status: domain.StatusIdle, Activity: "Hacking Corp Servers"},
	})
	if got := out.String(); !strings.Contains(got, "NeonViper#1234") || !strings.Contains(got, "Hacking Corp Servers") {
		t.Errorf("printPersonas = %q", got)
	}
}
