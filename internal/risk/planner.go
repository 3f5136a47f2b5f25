// internal/risk/planner.go
package risk

import (
	"fmt"
	"log"
	"math"

	"signaltrader/internal/signal/entity"
)

const maxTakeProfits = 10

// EntryType способ входа в позицию
const (
	EntryLimitZone = "limit_zone"
	EntryMarket    = "market"
)

// PlanMeta сводные данные плана для журнала и уведомлений
type PlanMeta struct {
	Source        string
	EquitySub     float64
	RiskTotalUSDT float64
}

// OrderPlan единица исполнения: одна или две ноги, лесенка тейков с долями
// и стоп. Создается один раз на сигнал и дальше читается; стоп обновляется
// только исполнителем при переносе в безубыток.
type OrderPlan struct {
	Side             entity.Direction
	Symbol           string
	EntryType        string // limit_zone | market
	EntryPrice       float64
	EntryZone        [2]float64
	Leg1             PositionLeg
	Leg2             *PositionLeg // при режиме "1/2"; открывается позже отдельным событием
	TPLevels         []float64
	TPShares         []float64 // доли на каждый TP, сумма <= 1.0
	SLPrice          float64
	BreakevenAfterTP int
	Meta             PlanMeta
}

// QtyTotal суммарное количество по обеим ногам
func (p *OrderPlan) QtyTotal() float64 {
	qty := p.Leg1.Qty
	if p.Leg2 != nil {
		qty += p.Leg2.Qty
	}
	return qty
}

// PlannerConfig параметры риск-модели, передаются явно вместо глобальных
// настроек, чтобы планировщик оставался чистой функцией от своих входов
type PlannerConfig struct {
	Symbol           string
	EquityUSDT       float64
	SplitScalpingPct float64
	SplitIntradayPct float64
	RiskLegPct       float64
	RiskTotalCapPct  float64
	LeverageMin      int
	BreakevenAfterTP int
}

// Planner строит OrderPlan из параметров сигнала
type Planner struct {
	cfg PlannerConfig
}

func NewPlanner(cfg PlannerConfig) *Planner {
	return &Planner{cfg: cfg}
}

// ChooseEntryPrice середина зоны входа, округленная до 2 знаков
func ChooseEntryPrice(zone [2]float64) float64 {
	low, high := zone[0], zone[1]
	if high < low {
		low, high = high, low
	}
	return math.Round((low+high)/2*100) / 100
}

// BuildPlan строит план: поддепозит по источнику, нога (или две при "1/2"),
// доли тейков так, чтобы первые два TP покрывали суммарный кап риска.
func (p *Planner) BuildPlan(
	source string,
	side entity.Direction,
	entryZone [2]float64,
	stopLoss float64,
	tpLevels []float64,
	legMode string,
	leverageHint int,
) (*OrderPlan, error) {
	equitySub := p.equitySub(source)
	riskTotal := RiskAmount(equitySub, p.cfg.RiskTotalCapPct)

	leverage := leverageHint
	if leverage <= 0 {
		leverage = p.cfg.LeverageMin
	}

	entryPrice := ChooseEntryPrice(entryZone)

	leg1, err := SizeLeg(entryPrice, stopLoss, equitySub, p.cfg.RiskLegPct, leverage)
	if err != nil {
		return nil, fmt.Errorf("leg 1 sizing: %w", err)
	}

	// Вторая нога симметрична по риску, открывается позже как долив
	var leg2 *PositionLeg
	if legMode == "1/2" {
		l, err := SizeLeg(entryPrice, stopLoss, equitySub, p.cfg.RiskLegPct, leverage)
		if err != nil {
			return nil, fmt.Errorf("leg 2 sizing: %w", err)
		}
		leg2 = &l
	}

	if len(tpLevels) > maxTakeProfits {
		tpLevels = tpLevels[:maxTakeProfits]
	}

	qtyTotal := leg1.Qty
	if leg2 != nil {
		qtyTotal += leg2.Qty
	}
	tpShares := allocateTPShares(entryPrice, tpLevels, riskTotal, qtyTotal)

	plan := &OrderPlan{
		Side:             side,
		Symbol:           p.cfg.Symbol,
		EntryType:        EntryLimitZone,
		EntryPrice:       entryPrice,
		EntryZone:        entryZone,
		Leg1:             leg1,
		Leg2:             leg2,
		TPLevels:         tpLevels,
		TPShares:         tpShares,
		SLPrice:          stopLoss,
		BreakevenAfterTP: p.cfg.BreakevenAfterTP,
		Meta: PlanMeta{
			Source:        source,
			EquitySub:     equitySub,
			RiskTotalUSDT: riskTotal,
		},
	}

	log.Printf("Planner: plan built: %s %s @ %.2f stop=%.2f qty=%.6f tps=%d",
		side, plan.Symbol, entryPrice, stopLoss, qtyTotal, len(tpLevels))

	return plan, nil
}

func (p *Planner) equitySub(source string) float64 {
	if source == "SCALPING" {
		return p.cfg.EquityUSDT * p.cfg.SplitScalpingPct / 100.0
	}
	return p.cfg.EquityUSDT * p.cfg.SplitIntradayPct / 100.0
}

// allocateTPShares распределяет доли количества по уровням тейков.
// При двух и более уровнях первые два получают равную долю f, подобранную так,
// чтобы их суммарная прибыль покрыла riskTotal; остаток делится поровну между
// остальными. При одном уровне — 100% на него.
func allocateTPShares(entry float64, tpLevels []float64, riskTotal, qtyTotal float64) []float64 {
	if len(tpLevels) == 0 {
		return []float64{}
	}
	if len(tpLevels) < 2 {
		return []float64{1.0}
	}

	f := tpSharesCoverRisk(entry, tpLevels[0], tpLevels[1], riskTotal, qtyTotal)
	shares := []float64{f, f}

	rest := math.Max(0, 1.0-2*f)
	if len(tpLevels) > 2 && rest > 0 {
		each := math.Round(rest/float64(len(tpLevels)-2)*1e4) / 1e4
		for i := 2; i < len(tpLevels); i++ {
			shares = append(shares, each)
		}
	} else {
		for i := 2; i < len(tpLevels); i++ {
			shares = append(shares, 0)
		}
	}
	return shares
}

// tpSharesCoverRisk подбирает равную долю f на TP1 и TP2 так, чтобы
//
//	f*qty*(|E-TP1| + |E-TP2|) >= riskTotal
//
// f ограничивается диапазоном [0, 0.5] — на два тейка не больше 100% позиции
func tpSharesCoverRisk(entry, tp1, tp2, riskTotal, qtyTotal float64) float64 {
	d1 := math.Abs(entry - tp1)
	d2 := math.Abs(entry - tp2)
	denom := math.Max(qtyTotal*(d1+d2), 1e-9)
	f := riskTotal / denom
	return math.Min(math.Max(f, 0.0), 0.5)
}
