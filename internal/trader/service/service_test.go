package service

import (
	"context"
	"errors"
	"testing"

	"signaltrader/internal/bitget/entity"
	bitget "signaltrader/internal/bitget/service"
	"signaltrader/internal/risk"
	signalentity "signaltrader/internal/signal/entity"
	signalsvc "signaltrader/internal/signal/service"
)

// noopGateway для dry-run прогонов конвейера
type noopGateway struct {
	modifiedStops []float64
}

func (g *noopGateway) Ping(ctx context.Context) error { return nil }
func (g *noopGateway) SetLeverage(ctx context.Context, symbol string, leverage int, side string) error {
	return nil
}
func (g *noopGateway) PlaceOrder(ctx context.Context, req entity.OrderRequest) (*entity.OrderAck, error) {
	return &entity.OrderAck{OrderID: "ex-1", ClientOID: req.ClientOID, Status: entity.StatusNew}, nil
}
func (g *noopGateway) CancelOrder(ctx context.Context, symbol, clientOID string) error { return nil }
func (g *noopGateway) ModifyStop(ctx context.Context, symbol, side string, size, triggerPrice float64, oldClientOID, newClientOID string) error {
	g.modifiedStops = append(g.modifiedStops, triggerPrice)
	return nil
}

func newTestService(gw bitget.ExchangeGateway, dryRun bool) (*Service, *bitget.PositionWatcher) {
	watcher := bitget.NewPositionWatcher(nil, 0)
	svc := NewService(
		signalsvc.NewParser(),
		signalsvc.NewRouter(),
		risk.PlannerConfig{
			Symbol:           "BTCUSDT_UMCBL",
			EquityUSDT:       1000,
			SplitScalpingPct: 15,
			SplitIntradayPct: 85,
			RiskLegPct:       1.5,
			RiskTotalCapPct:  3.0,
			LeverageMin:      10,
			BreakevenAfterTP: 2,
		},
		bitget.NewExecutor(gw, dryRun),
		watcher,
		nil,
	)
	return svc, watcher
}

func TestProcessAlertEndToEnd(t *testing.T) {
	svc, watcher := newTestService(&noopGateway{}, true)

	result, err := svc.ProcessAlert(context.Background(), "INTRADAY", "msg-1",
		"Вход в лонг 30000-30200, стоп 29500, цели: 30500 31000 31500")
	if err != nil {
		t.Fatalf("ProcessAlert failed: %v", err)
	}

	if result.Strategy != "INTRADAY" {
		t.Fatalf("strategy = %s, want INTRADAY", result.Strategy)
	}
	if result.Plan.EntryPrice != 30100 {
		t.Fatalf("entry price = %.2f, want 30100", result.Plan.EntryPrice)
	}
	if result.Plan.EntryType != risk.EntryLimitZone {
		t.Fatalf("entry type = %s, want limit_zone", result.Plan.EntryType)
	}
	if len(result.Orders) == 0 {
		t.Fatal("no orders in result")
	}
	if len(watcher.ActivePlans()) != 1 {
		t.Fatalf("active plans = %d, want 1", len(watcher.ActivePlans()))
	}
}

func TestProcessAlertNoise(t *testing.T) {
	svc, watcher := newTestService(&noopGateway{}, true)

	_, err := svc.ProcessAlert(context.Background(), "", "msg-2",
		"Лонг BTC 30000, сегодня стрим на Twitch, заходите")
	if !errors.Is(err, signalsvc.ErrNotASignal) {
		t.Fatalf("err = %v, want ErrNotASignal", err)
	}
	if len(watcher.ActivePlans()) != 0 {
		t.Fatal("noise alert produced a plan")
	}
}

func TestProcessAlertMissingStop(t *testing.T) {
	svc, _ := newTestService(&noopGateway{}, true)

	_, err := svc.ProcessAlert(context.Background(), "", "msg-3",
		"Пробую лонг 30000, цель 30500")
	if !errors.Is(err, signalsvc.ErrParseIncomplete) {
		t.Fatalf("err = %v, want ErrParseIncomplete", err)
	}
}

func TestProcessAlertFallbackTakeProfits(t *testing.T) {
	svc, _ := newTestService(&noopGateway{}, true)

	result, err := svc.ProcessAlert(context.Background(), "INTRADAY", "msg-4",
		"Вход в лонг 30000, стоп-лосс 29500, без целей пока")
	if err != nil {
		t.Fatalf("ProcessAlert failed: %v", err)
	}

	// Лесенка 2R/3R от входа: R = 500
	tps := result.Signal.TakeProfits
	if len(tps) != 2 || tps[0] != 31000 || tps[1] != 31500 {
		t.Fatalf("fallback take profits = %v, want [31000 31500]", tps)
	}
}

func TestProcessAlertScalpingMarketEntry(t *testing.T) {
	svc, _ := newTestService(&noopGateway{}, true)

	result, err := svc.ProcessAlert(context.Background(), "SCALPING", "msg-5",
		"Вход в шорт 31000, стоп 31100, цель 30800")
	if err != nil {
		t.Fatalf("ProcessAlert failed: %v", err)
	}

	if result.Plan.EntryType != risk.EntryMarket {
		t.Fatalf("entry type = %s, want market for scalping", result.Plan.EntryType)
	}
	if result.Plan.Leg1.Leverage != 15 {
		t.Fatalf("leverage = %d, want scalping min 15", result.Plan.Leg1.Leverage)
	}
}

func TestProcessAlertLeverageClamp(t *testing.T) {
	svc, _ := newTestService(&noopGateway{}, true)

	result, err := svc.ProcessAlert(context.Background(), "INTRADAY", "msg-6",
		"Вход в лонг 30000, стоп 29000, цель 32000, плечо x50")
	if err != nil {
		t.Fatalf("ProcessAlert failed: %v", err)
	}
	if result.Plan.Leg1.Leverage != 20 {
		t.Fatalf("leverage = %d, want clamp to intraday max 20", result.Plan.Leg1.Leverage)
	}
}

func TestHandleBreakeven(t *testing.T) {
	gw := &noopGateway{}
	svc, _ := newTestService(gw, false)

	longRec := &bitget.PlanRecord{
		PlanID: "p1", Symbol: "BTCUSDT_UMCBL",
		Side: signalentity.DirectionLong, Entry: 30000, QtyTotal: 0.1,
	}
	if err := svc.HandleBreakeven(longRec); err != nil {
		t.Fatalf("HandleBreakeven failed: %v", err)
	}

	shortRec := &bitget.PlanRecord{
		PlanID: "p2", Symbol: "BTCUSDT_UMCBL",
		Side: signalentity.DirectionShort, Entry: 31000, QtyTotal: 0.1,
	}
	if err := svc.HandleBreakeven(shortRec); err != nil {
		t.Fatalf("HandleBreakeven failed: %v", err)
	}

	if len(gw.modifiedStops) != 2 {
		t.Fatalf("modified stops = %v", gw.modifiedStops)
	}
	// Буфер один тик цены в сторону прибыли
	if gw.modifiedStops[0] != 29999 {
		t.Fatalf("long breakeven = %.2f, want 29999", gw.modifiedStops[0])
	}
	if gw.modifiedStops[1] != 31001 {
		t.Fatalf("short breakeven = %.2f, want 31001", gw.modifiedStops[1])
	}
}
