package service

import (
	"context"
	"sync"
	"time"
)

// RestPriceFunc источник цены через REST тикер Bitget
func RestPriceFunc(client *BitgetHTTPClient, symbol string) PriceFunc {
	return func() (float64, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return client.GetLastPrice(ctx, symbol)
	}
}

// SyntheticPriceSource детерминированный источник цены для dry-run прогонов:
// стартует с базовой цены и прибавляет фиксированный шаг на каждый вызов
type SyntheticPriceSource struct {
	mu    sync.Mutex
	price float64
	step  float64
}

func NewSyntheticPriceSource(start, step float64) *SyntheticPriceSource {
	if start <= 0 {
		start = 30000
	}
	if step == 0 {
		step = 50
	}
	return &SyntheticPriceSource{price: start - step, step: step}
}

// Next следующая цена
func (s *SyntheticPriceSource) Next() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.price += s.step
	return s.price, nil
}

// PriceFunc адаптер под интерфейс watcher'а
func (s *SyntheticPriceSource) PriceFunc() PriceFunc {
	return s.Next
}
