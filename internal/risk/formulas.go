// internal/risk/formulas.go
package risk

import (
	"errors"
	"math"
)

// ErrInvalidStopDistance фатальная ошибка расчёта размера: |entry - stop| <= 0.
// Вызывающий обязан прервать построение плана, подмена дистанции запрещена.
var ErrInvalidStopDistance = errors.New("invalid stop distance")

// PositionLeg результат расчёта одной «ноги» позиции. Значение не изменяется
// на месте — масштабирование возвращает новый PositionLeg.
type PositionLeg struct {
	Qty        float64 // количество в коинах
	Notional   float64 // номинал = qty * entry
	Margin     float64 // требуемая маржа = notional / leverage
	EntryPrice float64
	StopPrice  float64
	Leverage   int
}

// RiskAmount переводит процент риска в сумму в USDT
func RiskAmount(equityUSDT, riskPct float64) float64 {
	return equityUSDT * (riskPct / 100.0)
}

// QuantityForRisk считает количество под заданную сумму риска.
// Для линейного USDT-перпетуала P/L ≈ (price_out - price_in) * qty,
// поэтому qty = risk / |entry - stop|.
func QuantityForRisk(entry, stop, riskUSDT float64) (float64, error) {
	d := math.Abs(entry - stop)
	if d <= 0 {
		return 0, ErrInvalidStopDistance
	}
	return riskUSDT / d, nil
}

// SizeLeg рассчитывает ногу позиции от поддепозита и процента риска на ногу
func SizeLeg(entry, stop, equitySub, riskLegPct float64, leverage int) (PositionLeg, error) {
	r := RiskAmount(equitySub, riskLegPct)
	qty, err := QuantityForRisk(entry, stop, r)
	if err != nil {
		return PositionLeg{}, err
	}
	notional := qty * entry
	lev := leverage
	if lev < 1 {
		lev = 1
	}
	return PositionLeg{
		Qty:        qty,
		Notional:   notional,
		Margin:     notional / float64(lev),
		EntryPrice: entry,
		StopPrice:  stop,
		Leverage:   leverage,
	}, nil
}

// ScaleToMargin пропорционально уменьшает ногу, если доступной маржи меньше,
// чем требуется. Только уменьшение, никогда не увеличение.
func ScaleToMargin(leg PositionLeg, maxMargin float64) PositionLeg {
	if leg.Margin <= maxMargin {
		return leg
	}
	k := maxMargin / leg.Margin
	return PositionLeg{
		Qty:        leg.Qty * k,
		Notional:   leg.Notional * k,
		Margin:     leg.Margin * k,
		EntryPrice: leg.EntryPrice,
		StopPrice:  leg.StopPrice,
		Leverage:   leg.Leverage,
	}
}
