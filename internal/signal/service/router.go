package service

import (
	"log"

	"signaltrader/internal/signal/entity"
)

// ExecutionParams параметры исполнения для типа стратегии
type ExecutionParams struct {
	LeverageMin    int
	LeverageMax    int
	RiskLegPct     float64
	TimeoutMinutes int
	EntryType      string // market | limit_zone
}

// Router относит сигнал к стратегии (SCALPING/INTRADAY) и выдает
// параметры исполнения. Если источник задан явно, он имеет приоритет;
// иначе стратегия определяется по характеристикам сигнала.
type Router struct{}

func NewRouter() *Router {
	return &Router{}
}

// Route возвращает тип стратегии для сигнала
func (r *Router) Route(sig *entity.TradingSignal, source string) string {
	switch source {
	case "SCALPING":
		return "SCALPING"
	case "INTRADAY":
		return "INTRADAY"
	}

	if r.isScalpingSignal(sig) {
		log.Printf("Router: signal %s classified as SCALPING by characteristics", sig.MessageID)
		return "SCALPING"
	}
	return "INTRADAY"
}

// isScalpingSignal определяет скальпинг по признакам: короткий стоп (<1% от
// входа), близкий первый тейк (<2%) или высокое плечо (>20x)
func (r *Router) isScalpingSignal(sig *entity.TradingSignal) bool {
	entry := (sig.EntryLow + sig.EntryHigh) / 2
	if entry <= 0 {
		return false
	}

	if sig.StopPrice > 0 {
		stopPct := abs(entry-sig.StopPrice) / entry * 100
		if stopPct < 1.0 {
			return true
		}
	}

	if len(sig.TakeProfits) > 0 {
		tpPct := abs(entry-sig.TakeProfits[0]) / entry * 100
		if tpPct < 2.0 {
			return true
		}
	}

	return sig.Leverage > 20
}

// ExecutionParams возвращает параметры исполнения для стратегии
func (r *Router) ExecutionParams(strategy string) ExecutionParams {
	if strategy == "SCALPING" {
		return ExecutionParams{
			LeverageMin:    15,
			LeverageMax:    25,
			RiskLegPct:     1.0,
			TimeoutMinutes: 30,
			EntryType:      "market",
		}
	}
	return ExecutionParams{
		LeverageMin:    10,
		LeverageMax:    20,
		RiskLegPct:     1.5,
		TimeoutMinutes: 240,
		EntryType:      "limit_zone",
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
