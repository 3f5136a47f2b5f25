package repository

import (
	"testing"
	"time"

	"signaltrader/internal/signal/entity"
)

func TestEncodeDecodeTakeProfits(t *testing.T) {
	encoded := EncodeTakeProfits([]float64{30500, 31000.5, 31500})
	if encoded != "30500-31000.5-31500" {
		t.Fatalf("encoded = %q", encoded)
	}

	levels, err := DecodeTakeProfits(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(levels) != 3 || levels[0] != 30500 || levels[1] != 31000.5 || levels[2] != 31500 {
		t.Fatalf("levels = %v", levels)
	}

	if EncodeTakeProfits(nil) != "" {
		t.Fatal("encoded empty levels not empty")
	}
	if l, err := DecodeTakeProfits(""); err != nil || l != nil {
		t.Fatalf("decode empty = %v, %v", l, err)
	}
	if _, err := DecodeTakeProfits("30500-abc"); err == nil {
		t.Fatal("decode accepted garbage")
	}
}

func TestJournalRoundTrip(t *testing.T) {
	sig := &entity.TradingSignal{
		MessageID:   "msg-1",
		Source:      "INTRADAY",
		Direction:   entity.DirectionShort,
		EntryLow:    31000,
		EntryHigh:   31200,
		StopPrice:   31500,
		TakeProfits: []float64{30600, 30200},
		RiskPercent: 2,
		Leverage:    15,
		Timestamp:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		RawText:     "Вход в шорт 31000-31200",
	}

	entry := FromSignal(sig, "BTCUSDT_UMCBL", 0.05)
	if entry.Direction != "SHORT" || entry.Symbol != "BTCUSDT_UMCBL" || entry.PlanQty != 0.05 {
		t.Fatalf("entry = %+v", entry)
	}

	restored, err := entry.ToSignal()
	if err != nil {
		t.Fatalf("ToSignal failed: %v", err)
	}
	if restored.Direction != sig.Direction {
		t.Fatalf("direction = %s, want %s", restored.Direction, sig.Direction)
	}
	if restored.EntryLow != sig.EntryLow || restored.EntryHigh != sig.EntryHigh {
		t.Fatalf("entry zone = [%.2f %.2f]", restored.EntryLow, restored.EntryHigh)
	}
	if restored.StopPrice != sig.StopPrice {
		t.Fatalf("stop = %.2f", restored.StopPrice)
	}
	if len(restored.TakeProfits) != 2 || restored.TakeProfits[0] != 30600 {
		t.Fatalf("take profits = %v", restored.TakeProfits)
	}
	if !restored.Timestamp.Equal(sig.Timestamp) {
		t.Fatalf("timestamp = %v", restored.Timestamp)
	}
}
