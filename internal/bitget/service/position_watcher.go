package service

import (
	"context"
	"log"
	"sync"
	"time"

	"signaltrader/internal/metrics"
	signalentity "signaltrader/internal/signal/entity"
)

// PlanRecord состояние одного плана под наблюдением watcher'а
type PlanRecord struct {
	PlanID           string                 `json:"plan_id"`
	Symbol           string                 `json:"symbol"`
	Side             signalentity.Direction `json:"side"`
	Entry            float64                `json:"entry"`
	Stop             float64                `json:"stop"`
	TPs              []float64              `json:"tps"`
	TPShares         []float64              `json:"tp_shares"`
	BreakevenAfterTP int                    `json:"breakeven_after_tp"`
	QtyTotal         float64                `json:"qty_total"`

	hits int // число последовательно достигнутых TP, защищено мьютексом watcher'а
}

// TPHits число достигнутых тейков. Только для чтения вне watcher'а.
func (r *PlanRecord) TPHits() int { return r.hits }

// BreakevenHandler вызывается ровно один раз для плана при достижении порога
type BreakevenHandler func(rec *PlanRecord) error

// PositionWatcher наблюдает за активными планами по текущей цене. Планы
// хранятся в map по planID, каждый тик обновляет счетчик достигнутых TP.
// При достижении порога вызывается breakeven-обработчик и план снимается
// с наблюдения.
type PositionWatcher struct {
	mu          sync.Mutex
	plans       map[string]*PlanRecord
	price       PriceFunc
	onBreakeven BreakevenHandler
	interval    time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
}

func NewPositionWatcher(price PriceFunc, interval time.Duration) *PositionWatcher {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PositionWatcher{
		plans:    make(map[string]*PlanRecord),
		price:    price,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetBreakevenHandler устанавливает обработчик переноса в безубыток.
// Должен быть вызван до Start.
func (w *PositionWatcher) SetBreakevenHandler(h BreakevenHandler) {
	w.onBreakeven = h
}

// Register ставит план под наблюдение
func (w *PositionWatcher) Register(rec *PlanRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.plans[rec.PlanID] = rec
	metrics.WatcherActivePlans.Set(float64(len(w.plans)))
	log.Printf("PositionWatcher: plan %s registered (%d active)", rec.PlanID, len(w.plans))
}

// Unregister снимает план с наблюдения
func (w *PositionWatcher) Unregister(planID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.plans, planID)
	metrics.WatcherActivePlans.Set(float64(len(w.plans)))
}

// ActivePlans копия текущих наблюдаемых планов
func (w *PositionWatcher) ActivePlans() []*PlanRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*PlanRecord, 0, len(w.plans))
	for _, rec := range w.plans {
		out = append(out, rec)
	}
	return out
}

// Start запускает цикл наблюдения. Блокирует до Stop или отмены контекста.
func (w *PositionWatcher) Start() {
	log.Printf("PositionWatcher: started (interval %s)", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			log.Println("PositionWatcher: stopped")
			return
		case <-ticker.C:
			price, err := w.price()
			if err != nil {
				log.Printf("PositionWatcher: price fetch failed: %v", err)
				continue
			}
			w.tick(price)
		}
	}
}

// Stop останавливает цикл наблюдения
func (w *PositionWatcher) Stop() {
	w.cancel()
}

// tick обновляет счетчики достигнутых TP по всем планам. Уровни проверяются
// строго по порядку начиная с текущего счетчика: первый недостигнутый уровень
// прерывает проход, поэтому счетчик монотонно растет и не перескакивает.
func (w *PositionWatcher) tick(price float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, rec := range w.plans {
		before := rec.hits
		for i := rec.hits; i < len(rec.TPs); i++ {
			if !tpReached(rec.Side, price, rec.TPs[i]) {
				break
			}
			rec.hits++
		}
		if rec.hits > before {
			metrics.TPHitsTotal.Add(float64(rec.hits - before))
			log.Printf("PositionWatcher: plan %s: %d/%d TP reached at %.2f", id, rec.hits, len(rec.TPs), price)
		}

		if rec.BreakevenAfterTP > 0 && rec.hits >= rec.BreakevenAfterTP {
			if w.onBreakeven != nil {
				if err := w.onBreakeven(rec); err != nil {
					log.Printf("PositionWatcher: breakeven handler failed for plan %s: %v", id, err)
				} else {
					metrics.BreakevenFiredTotal.Inc()
				}
			}
			// План снимается независимо от исхода обработчика: перенос
			// стопа выполняется не более одного раза
			delete(w.plans, id)
			metrics.WatcherActivePlans.Set(float64(len(w.plans)))
		}
	}
}

func tpReached(side signalentity.Direction, price, level float64) bool {
	if side == signalentity.DirectionLong {
		return price >= level
	}
	return price <= level
}
