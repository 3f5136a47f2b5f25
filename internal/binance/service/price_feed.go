// internal/binance/service/price_feed.go
package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
)

// PriceFeed альтернативный источник цены через публичный фьючерсный API Binance.
// Используется, когда основная биржа недоступна или для кросс-проверки котировок.
type PriceFeed struct {
	FuturesClient *futures.Client
}

func NewPriceFeed() *PriceFeed {
	// Публичные тикеры не требуют ключей
	return &PriceFeed{
		FuturesClient: binance.NewFuturesClient("", ""),
	}
}

// LastPrice последняя цена фьючерсного контракта
func (f *PriceFeed) LastPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := f.FuturesClient.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("binance price request failed: %v", err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("no price data for %s", symbol)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse price %q: %v", prices[0].Price, err)
	}
	return price, nil
}

// PriceFunc адаптер под интерфейс watcher'а. Символ Binance совпадает с
// символом контракта без суффикса маржинальной монеты (BTCUSDT_UMCBL -> BTCUSDT).
func (f *PriceFeed) PriceFunc(symbol string) func() (float64, error) {
	return func() (float64, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return f.LastPrice(ctx, symbol)
	}
}
