package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "intrabot-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.App.TokenFile != "token.txt" {
		t.Fatalf("unexpected App.TokenFile: %s", cfg.App.TokenFile)
	}
	if cfg.Strategy.Mode != ModeCrossover {
		t.Fatalf("unexpected mode: %s", cfg.Strategy.Mode)
	}
	if cfg.Strategy.PollIntervalSecs != 30 {
		t.Fatalf("unexpected poll interval: %d", cfg.Strategy.PollIntervalSecs)
	}
	if cfg.Strategy.PacingMs != 500 {
		t.Fatalf("expected pacing default 500, got %d", cfg.Strategy.PacingMs)
	}
	if cfg.Crossover.LotSize != 2 {
		t.Fatalf("unexpected lot size: %d", cfg.Crossover.LotSize)
	}
	if len(cfg.Crossover.Markets) != 1 {
		t.Fatalf("expected one market, got %d", len(cfg.Crossover.Markets))
	}
	m := cfg.Crossover.Markets[0]
	if m.OptionBase != "CRUDEOILM" || m.Exchange != "MCX" || m.StrikeInterval != 100 {
		t.Fatalf("unexpected market: %+v", m)
	}
	if m.Window.Start.String() != "15:30" || m.Window.End.String() != "23:10" {
		t.Fatalf("unexpected window: %s-%s", m.Window.Start, m.Window.End)
	}
	if cfg.MMR.SquareOff.Minutes() != 15*60+10 {
		t.Fatalf("unexpected square off: %s", cfg.MMR.SquareOff)
	}
	if cfg.MMR.RiskPerTrade != 0.01 {
		t.Fatalf("expected risk default 0.01, got %v", cfg.MMR.RiskPerTrade)
	}
	if cfg.MMR.ATRPeriod != 14 {
		t.Fatalf("expected ATR default 14, got %d", cfg.MMR.ATRPeriod)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	out := filepath.Join(t.TempDir(), "config.yaml")
	if err := Save(out, cfg); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	again, err := Load(out)
	if err != nil {
		t.Fatalf("reload returned error: %v", err)
	}
	if again.Crossover.Markets[0].Window.End.String() != "23:10" {
		t.Fatalf("window did not survive round trip: %s", again.Crossover.Markets[0].Window.End)
	}
}

func TestWindowContains(t *testing.T) {
	w := Window{Start: TimeOfDay{Hour: 9, Minute: 30}, End: TimeOfDay{Hour: 15, Minute: 10}}

	inside := time.Date(2026, 2, 10, 11, 0, 0, 0, time.Local)
	if !w.Contains(inside) {
		t.Fatalf("expected 11:00 inside 09:30-15:10")
	}
	before := time.Date(2026, 2, 10, 9, 29, 0, 0, time.Local)
	if w.Contains(before) {
		t.Fatalf("expected 09:29 outside 09:30-15:10")
	}
	atEnd := time.Date(2026, 2, 10, 15, 10, 0, 0, time.Local)
	if w.Contains(atEnd) {
		t.Fatalf("expected end to be exclusive")
	}

	overnight := Window{Start: TimeOfDay{Hour: 22, Minute: 0}, End: TimeOfDay{Hour: 2, Minute: 0}}
	if !overnight.Contains(time.Date(2026, 2, 10, 23, 30, 0, 0, time.Local)) {
		t.Fatalf("expected 23:30 inside 22:00-02:00")
	}
	if !overnight.Contains(time.Date(2026, 2, 10, 1, 0, 0, 0, time.Local)) {
		t.Fatalf("expected 01:00 inside 22:00-02:00")
	}
	if overnight.Contains(time.Date(2026, 2, 10, 12, 0, 0, 0, time.Local)) {
		t.Fatalf("expected noon outside 22:00-02:00")
	}
}

func TestValidateRejectsBadMode(t *testing.T) {
	cfg := &Config{}
	cfg.Strategy.Mode = "martingale"
	cfg.applyDefaults()
	if err := cfg.validate(); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestValidateRequiresMarkets(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.validate(); err == nil {
		t.Fatalf("expected error for empty markets")
	}
}
