package main

import (
	"errors"
	"strings"
	"testing"

	"vantage/internal/domain"
	"vantage/internal/engine"
	"vantage/internal/performance"
	"vantage/internal/risk"
)

func TestParseFloats(t *testing.T) {
	got, err := parseFloats(" 0.01, 0.02,,0.5 ")
	if err != nil {
		t.Fatalf("parseFloats: %v", err)
	}
	if len(got) != 3 || got[0] != 0.01 || got[2] != 0.5 {
		t.Errorf("parseFloats = %v", got)
	}
	if _, err := parseFloats("0.01,abc"); err == nil {
		t.Error("parseFloats accepted abc")
	}
	if s := joinFloats([]float64{0.01, 0, 0.04}); s != "0.01,0,0.04" {
		t.Errorf("joinFloats = %q", s)
	}
}

func TestSweepJobs(t *testing.T) {
	hold := engine.StrategyFunc(func([]domain.Bar) domain.Signal { return domain.SignalHold })
	base := risk.DefaultConfig()

	jobs := sweepJobs(base, hold, 5000, []float64{0.01, 0.02}, []float64{0, 0.05})
	if len(jobs) != 4 {
		t.Fatalf("len(jobs) = %d, want 4", len(jobs))
	}
	last := jobs[3]
	if last.Config.StopLossPercent != 0.02 || last.Config.TakeProfitPercent != 0.05 || last.InitialCapital != 5000 {
		t.Errorf("jobs[3] = %+v", last)
	}
	if last.Name != "sl=0.02 tp=0.05" {
		t.Errorf("jobs[3].Name = %q", last.Name)
	}
	if base.StopLossPercent != risk.DefaultConfig().StopLossPercent {
		t.Error("sweepJobs modified the base config")
	}
}

func TestRenderSweepOrder(t *testing.T) {
	out := renderSweep([]sweepRow{
		{name: "low", report: performance.Report{TotalReturn: 0.01}},
		{name: "broken", err: errors.New("configuration error")},
		{name: "high", report: performance.Report{TotalReturn: 0.10}},
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("renderSweep lines = %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "high") || !strings.HasPrefix(lines[2], "low") || !strings.HasPrefix(lines[3], "broken") {
		t.Errorf("renderSweep order:\n%s", out)
	}
}
