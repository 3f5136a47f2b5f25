package repository

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"signaltrader/internal/signal/entity"
)

// JournalEntry представляет обработанный сигнал в базе данных
type JournalEntry struct {
	ID          int64     `db:"id"`
	MessageID   string    `db:"message_id"`
	Source      string    `db:"source"` // SCALPING, INTRADAY
	Symbol      string    `db:"symbol"`
	Direction   string    `db:"direction"` // LONG, SHORT
	EntryLow    float64   `db:"entry_low"`
	EntryHigh   float64   `db:"entry_high"`
	StopPrice   float64   `db:"stop_price"`
	TakeProfits string    `db:"take_profits"` // уровни через дефис: "30500-31000-31500"
	RiskPct     float64   `db:"risk_pct"`
	Leverage    int       `db:"leverage"`
	PlanQty     float64   `db:"plan_qty"`
	RawText     string    `db:"raw_text"`
	CreatedAt   time.Time `db:"created_at"`
}

// EncodeTakeProfits сериализует уровни тейков в строку для хранения
func EncodeTakeProfits(levels []float64) string {
	if len(levels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(levels))
	for _, l := range levels {
		parts = append(parts, strconv.FormatFloat(l, 'f', -1, 64))
	}
	return strings.Join(parts, "-")
}

// DecodeTakeProfits разбирает строку уровней из базы
func DecodeTakeProfits(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "-")
	levels := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid take profit value %q: %v", p, err)
		}
		levels = append(levels, v)
	}
	return levels, nil
}

// FromSignal строит запись журнала из распознанного сигнала
func FromSignal(sig *entity.TradingSignal, symbol string, planQty float64) *JournalEntry {
	return &JournalEntry{
		MessageID:   sig.MessageID,
		Source:      sig.Source,
		Symbol:      symbol,
		Direction:   string(sig.Direction),
		EntryLow:    sig.EntryLow,
		EntryHigh:   sig.EntryHigh,
		StopPrice:   sig.StopPrice,
		TakeProfits: EncodeTakeProfits(sig.TakeProfits),
		RiskPct:     sig.RiskPercent,
		Leverage:    sig.Leverage,
		PlanQty:     planQty,
		RawText:     sig.RawText,
		CreatedAt:   sig.Timestamp,
	}
}

// ToSignal восстанавливает сигнал из записи журнала
func (e *JournalEntry) ToSignal() (*entity.TradingSignal, error) {
	tps, err := DecodeTakeProfits(e.TakeProfits)
	if err != nil {
		return nil, err
	}
	return &entity.TradingSignal{
		MessageID:   e.MessageID,
		Source:      e.Source,
		Direction:   entity.Direction(e.Direction),
		EntryLow:    e.EntryLow,
		EntryHigh:   e.EntryHigh,
		StopPrice:   e.StopPrice,
		TakeProfits: tps,
		RiskPercent: e.RiskPct,
		Leverage:    e.Leverage,
		Timestamp:   e.CreatedAt,
		RawText:     e.RawText,
	}, nil
}
