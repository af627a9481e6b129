package broker

import (
	"math"
	"testing"
	"time"

	"vantage/internal/domain"
)

func testBar(volume float64) domain.Bar {
	return domain.Bar{
		Symbol:    "AAPL",
		Timestamp: time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC),
		Open:      100, High: 101, Low: 99, Close: 100,
		Volume: volume,
	}
}

func TestSimulatorName(t *testing.T) {
	if got := NewSimulator(0, 0).Name(); got != "simulator" {
		t.Errorf("Simulator.Name() = %q, want %q", got, "simulator")
	}
}

func TestSimulatorPriceUnfavorable(t *testing.T) {
	s := NewSimulator(0, 0.01)

	tests := []struct {
		action domain.FillAction
		side   domain.PositionSide
		want   float64
	}{
		{domain.FillActionEntry, domain.PositionSideLong, 101},
		{domain.FillActionExit, domain.PositionSideLong, 99},
		{domain.FillActionEntry, domain.PositionSideShort, 99},
		{domain.FillActionExit, domain.PositionSideShort, 101},
	}
	for _, tt := range tests {
		got := s.Price(tt.action, tt.side, 100)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Price(%s, %s, 100) = %v, want %v", tt.action, tt.side, got, tt.want)
		}
	}
}

func TestSimulatorFillFee(t *testing.T) {
	s := NewSimulator(0.001, 0)
	f, anomaly := s.Fill(FillRequest{
		Action:   domain.FillActionEntry,
		Side:     domain.PositionSideLong,
		Quote:    100,
		Quantity: 50,
		Bar:      testBar(1000),
	})
	if anomaly != nil {
		t.Fatalf("Fill: unexpected anomaly %v", anomaly.Reason)
	}
	if f.Price != 100 {
		t.Errorf("Price = %v, want 100", f.Price)
	}
	if math.Abs(f.Fee-5) > 1e-9 {
		t.Errorf("Fee = %v, want 5", f.Fee)
	}
	if f.Notional() != 5000 {
		t.Errorf("Notional() = %v, want 5000", f.Notional())
	}
}

func TestSimulatorFillAnomalies(t *testing.T) {
	s := NewSimulator(0.001, 0.0005)

	_, anomaly := s.Fill(FillRequest{
		Action: domain.FillActionEntry, Side: domain.PositionSideLong,
		Quote: 100, Quantity: 1, Bar: testBar(0),
	})
	if anomaly == nil {
		t.Fatal("expected anomaly for zero volume bar")
	}
	if anomaly.Action != domain.FillActionEntry || anomaly.Symbol != "AAPL" {
		t.Errorf("anomaly = %+v, want entry on AAPL", anomaly)
	}

	_, anomaly = s.Fill(FillRequest{
		Action: domain.FillActionExit, Side: domain.PositionSideLong,
		Quote: 0, Quantity: 1, Bar: testBar(10),
	})
	if anomaly == nil {
		t.Fatal("expected anomaly for zero quote")
	}

	_, anomaly = s.Fill(FillRequest{
		Action: domain.FillActionExit, Side: domain.PositionSideLong,
		Quote: 100, Quantity: 1, Bar: testBar(0), SkipVolumeCheck: true,
	})
	if anomaly != nil {
		t.Errorf("SkipVolumeCheck: unexpected anomaly %v", anomaly.Reason)
	}
}
