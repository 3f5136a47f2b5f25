package service

import (
	"context"

	"signaltrader/internal/bitget/entity"
)

// ExchangeGateway потребляемая способность биржи. Реализации должны быть
// безопасны для конкурентного использования исполнителем и watcher'ом.
type ExchangeGateway interface {
	Ping(ctx context.Context) error
	SetLeverage(ctx context.Context, symbol string, leverage int, side string) error
	PlaceOrder(ctx context.Context, req entity.OrderRequest) (*entity.OrderAck, error)
	CancelOrder(ctx context.Context, symbol, clientOID string) error
	// ModifyStop переносит стоп: реализуется как cancel+recreate
	ModifyStop(ctx context.Context, symbol, side string, size, triggerPrice float64, oldClientOID, newClientOID string) error
}

// PriceFunc источник текущей цены инструмента
type PriceFunc func() (float64, error)
