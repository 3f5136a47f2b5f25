package risk

import (
	"errors"
	"math"
	"testing"
)

func TestQuantityForRisk(t *testing.T) {
	qty, err := QuantityForRisk(30000, 29500, 150)
	if err != nil {
		t.Fatalf("QuantityForRisk failed: %v", err)
	}
	if math.Abs(qty-0.3) > 1e-9 {
		t.Fatalf("qty = %.6f, want 0.3", qty)
	}

	// qty * |entry - stop| должно в точности равняться сумме риска
	if loss := qty * math.Abs(30000-29500.0); math.Abs(loss-150) > 1e-9 {
		t.Fatalf("loss at stop = %.6f, want 150", loss)
	}
}

func TestQuantityForRiskZeroDistance(t *testing.T) {
	_, err := QuantityForRisk(30000, 30000, 150)
	if !errors.Is(err, ErrInvalidStopDistance) {
		t.Fatalf("err = %v, want ErrInvalidStopDistance", err)
	}
}

func TestSizeLeg(t *testing.T) {
	leg, err := SizeLeg(30000, 29500, 850, 1.5, 10)
	if err != nil {
		t.Fatalf("SizeLeg failed: %v", err)
	}

	wantQty := 850 * 0.015 / 500 // 12.75 / 500
	if math.Abs(leg.Qty-wantQty) > 1e-9 {
		t.Fatalf("qty = %.6f, want %.6f", leg.Qty, wantQty)
	}
	if math.Abs(leg.Notional-leg.Qty*30000) > 1e-9 {
		t.Fatalf("notional = %.6f, want qty*entry", leg.Notional)
	}
	if math.Abs(leg.Margin-leg.Notional/10) > 1e-9 {
		t.Fatalf("margin = %.6f, want notional/10", leg.Margin)
	}
}

func TestScaleToMarginDownOnly(t *testing.T) {
	leg := PositionLeg{Qty: 1, Notional: 30000, Margin: 3000, EntryPrice: 30000, StopPrice: 29500, Leverage: 10}

	scaled := ScaleToMargin(leg, 1500)
	if math.Abs(scaled.Qty-0.5) > 1e-9 {
		t.Fatalf("scaled qty = %.6f, want 0.5", scaled.Qty)
	}
	if math.Abs(scaled.Margin-1500) > 1e-9 {
		t.Fatalf("scaled margin = %.6f, want 1500", scaled.Margin)
	}

	// При достаточной марже нога не изменяется и никогда не увеличивается
	same := ScaleToMargin(leg, 10000)
	if same != leg {
		t.Fatalf("leg changed with sufficient margin: %+v", same)
	}
}
