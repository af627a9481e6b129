package domain

import (
	"errors"
	"testing"
	"time"
)

func TestTypesExist(t *testing.T) {
	// Verify Bar can be instantiated with zero values.
	bar := Bar{}
	if bar.Symbol != "" {
		t.Error("expected empty Symbol for zero-value Bar")
	}
	if !bar.Timestamp.IsZero() {
		t.Error("expected zero Timestamp for zero-value Bar")
	}

	// The zero Signal is a hold.
	var s Signal
	if s.Normalize() != SignalHold {
		t.Errorf("zero Signal.Normalize() = %q, want %q", s.Normalize(), SignalHold)
	}
	if Signal("bogus").Normalize() != SignalHold {
		t.Error("unknown signal should normalize to hold")
	}

	// Verify enum constants are defined correctly.
	if ExitReasonDailyLimitForcedClose != "daily_limit_forced_close" {
		t.Errorf("ExitReasonDailyLimitForcedClose = %q", ExitReasonDailyLimitForcedClose)
	}
	if PositionSideLong.Sign() != 1 || PositionSideShort.Sign() != -1 {
		t.Error("PositionSide.Sign returned unexpected values")
	}
}

func TestSideForSignal(t *testing.T) {
	tests := []struct {
		sig    Signal
		want   PositionSide
		wantOK bool
	}{
		{SignalBuy, PositionSideLong, true},
		{SignalSell, PositionSideShort, true},
		{SignalHold, "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := SideForSignal(tt.sig)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("SideForSignal(%q) = (%q, %v), want (%q, %v)", tt.sig, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestPositionPnLAt(t *testing.T) {
	long := Position{Side: PositionSideLong, EntryPrice: 100, Quantity: 2}
	if got := long.PnLAt(110); got != 20 {
		t.Errorf("long PnLAt(110) = %v, want 20", got)
	}
	short := Position{Side: PositionSideShort, EntryPrice: 100, Quantity: 2}
	if got := short.PnLAt(110); got != -20 {
		t.Errorf("short PnLAt(110) = %v, want -20", got)
	}
	if got := short.Notional(); got != 200 {
		t.Errorf("Notional() = %v, want 200", got)
	}
}

func testBar(ts time.Time, o, h, l, c float64) Bar {
	return Bar{Symbol: "BTCUSDT", Timestamp: ts, Open: o, High: h, Low: l, Close: c, Volume: 10}
}

func TestValidateBars(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	good := []Bar{
		testBar(t0, 100, 101, 99, 100.5),
		testBar(t0.Add(time.Hour), 100.5, 102, 100, 101),
	}
	if err := ValidateBars(good); err != nil {
		t.Fatalf("ValidateBars(good) returned error: %v", err)
	}

	tests := []struct {
		name string
		bars []Bar
	}{
		{"empty", nil},
		{"duplicate timestamp", []Bar{testBar(t0, 100, 101, 99, 100), testBar(t0, 100, 101, 99, 100)}},
		{"descending", []Bar{testBar(t0.Add(time.Hour), 100, 101, 99, 100), testBar(t0, 100, 101, 99, 100)}},
		{"low above high", []Bar{testBar(t0, 100, 99, 101, 100)}},
		{"close outside range", []Bar{testBar(t0, 100, 101, 99, 105)}},
		{"zero price", []Bar{testBar(t0, 0, 101, 0, 100)}},
	}
	for _, tt := range tests {
		err := ValidateBars(tt.bars)
		if err == nil {
			t.Errorf("%s: ValidateBars returned nil, want DataError", tt.name)
			continue
		}
		if !errors.Is(err, ErrData) {
			t.Errorf("%s: error %v does not wrap ErrData", tt.name, err)
		}
		var de *DataError
		if !errors.As(err, &de) {
			t.Errorf("%s: error %v is not a *DataError", tt.name, err)
		}
	}
}

func TestConfigurationErrorWraps(t *testing.T) {
	err := error(NewConfigurationError("stop_loss_percent", "must be > 0, got %v", -1.0))
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("ConfigurationError does not wrap ErrConfiguration")
	}
	want := "configuration error: stop_loss_percent: must be > 0, got -1"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
