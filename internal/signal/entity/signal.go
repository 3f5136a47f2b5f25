package entity

import "time"

// Direction направление сделки
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Opposite возвращает противоположное направление
func (d Direction) Opposite() Direction {
	if d == DirectionLong {
		return DirectionShort
	}
	return DirectionLong
}

// TradingSignal результат разбора одного алерта. Создаётся парсером
// один раз и дальше не изменяется.
type TradingSignal struct {
	MessageID   string
	Source      string // SCALPING | INTRADAY
	Direction   Direction
	EntryLow    float64
	EntryHigh   float64
	StopPrice   float64   // 0 = стоп в тексте не найден
	TakeProfits []float64 // упорядочены по удалению от входа
	RiskPercent float64   // 0 = не указан
	Leverage    int       // 0 = не указано
	Timestamp   time.Time
	RawText     string
}

// HasStop сообщает, найден ли в сигнале стоп-лосс.
// Сигнал без стопа валиден, но не может быть рассчитан в размер позиции.
func (s *TradingSignal) HasStop() bool {
	return s.StopPrice > 0
}

// EntryZone возвращает зону входа [low, high]
func (s *TradingSignal) EntryZone() [2]float64 {
	return [2]float64{s.EntryLow, s.EntryHigh}
}
