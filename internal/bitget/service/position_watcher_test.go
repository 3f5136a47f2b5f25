package service

import (
	"testing"

	"signaltrader/internal/signal/entity"
)

func longPlanRecord() *PlanRecord {
	return &PlanRecord{
		PlanID:           "BTCUSDT_UMCBL:LONG:30000.00:29500.00:1",
		Symbol:           "BTCUSDT_UMCBL",
		Side:             entity.DirectionLong,
		Entry:            30000,
		Stop:             29500,
		TPs:              []float64{30500, 31000, 31500},
		TPShares:         []float64{0.4, 0.4, 0.2},
		BreakevenAfterTP: 2,
		QtyTotal:         0.1,
	}
}

func TestWatcherAdvancesHitsInOrder(t *testing.T) {
	w := NewPositionWatcher(nil, 0)
	rec := longPlanRecord()
	rec.BreakevenAfterTP = 0 // без переноса, только счетчик
	w.Register(rec)

	steps := []struct {
		price float64
		hits  int
	}{
		{30100, 0},
		{30600, 1},
		{30900, 1}, // откат ниже TP2 не сбрасывает счетчик
		{31200, 2},
		{31600, 3},
	}
	for _, s := range steps {
		w.tick(s.price)
		if rec.TPHits() != s.hits {
			t.Fatalf("price %.2f: hits = %d, want %d", s.price, rec.TPHits(), s.hits)
		}
	}
}

func TestWatcherSkipsAheadOnGap(t *testing.T) {
	w := NewPositionWatcher(nil, 0)
	rec := longPlanRecord()
	rec.BreakevenAfterTP = 0
	w.Register(rec)

	// Резкий рост сразу через все уровни
	w.tick(31600)
	if rec.TPHits() != 3 {
		t.Fatalf("hits = %d, want 3 after gap move", rec.TPHits())
	}
}

func TestWatcherBreakevenFiresOnce(t *testing.T) {
	w := NewPositionWatcher(nil, 0)

	fired := 0
	w.SetBreakevenHandler(func(rec *PlanRecord) error {
		fired++
		return nil
	})

	rec := longPlanRecord()
	w.Register(rec)

	w.tick(31200) // TP1 и TP2 достигнуты, порог 2
	if fired != 1 {
		t.Fatalf("breakeven fired %d times, want 1", fired)
	}
	if len(w.ActivePlans()) != 0 {
		t.Fatalf("plan still active after breakeven, %d plans", len(w.ActivePlans()))
	}

	// Дальнейший рост не вызывает обработчик повторно
	w.tick(31600)
	w.tick(32000)
	if fired != 1 {
		t.Fatalf("breakeven fired %d times after removal, want 1", fired)
	}
}

func TestWatcherShortDirection(t *testing.T) {
	w := NewPositionWatcher(nil, 0)

	fired := 0
	w.SetBreakevenHandler(func(rec *PlanRecord) error {
		fired++
		return nil
	})

	rec := &PlanRecord{
		PlanID:           "BTCUSDT_UMCBL:SHORT:31000.00:31400.00:1",
		Symbol:           "BTCUSDT_UMCBL",
		Side:             entity.DirectionShort,
		Entry:            31000,
		Stop:             31400,
		TPs:              []float64{30600, 30200},
		TPShares:         []float64{0.5, 0.5},
		BreakevenAfterTP: 2,
		QtyTotal:         0.1,
	}
	w.Register(rec)

	w.tick(30900)
	if rec.TPHits() != 0 {
		t.Fatalf("hits = %d above TP1, want 0", rec.TPHits())
	}
	w.tick(30500)
	if rec.TPHits() != 1 {
		t.Fatalf("hits = %d, want 1", rec.TPHits())
	}
	w.tick(30100)
	if fired != 1 {
		t.Fatalf("breakeven fired %d times for short, want 1", fired)
	}
}

func TestWatcherRemovesPlanOnHandlerError(t *testing.T) {
	w := NewPositionWatcher(nil, 0)
	w.SetBreakevenHandler(func(rec *PlanRecord) error {
		return errTest
	})

	rec := longPlanRecord()
	w.Register(rec)

	w.tick(31200)
	// Перенос выполняется не более одного раза, план снят даже при отказе
	if len(w.ActivePlans()) != 0 {
		t.Fatalf("plan still active after handler error, %d plans", len(w.ActivePlans()))
	}
}

func TestWatcherRegisterUnregister(t *testing.T) {
	w := NewPositionWatcher(nil, 0)
	rec := longPlanRecord()
	w.Register(rec)

	if n := len(w.ActivePlans()); n != 1 {
		t.Fatalf("active plans = %d, want 1", n)
	}

	w.Unregister(rec.PlanID)
	if n := len(w.ActivePlans()); n != 0 {
		t.Fatalf("active plans = %d after unregister, want 0", n)
	}
}
