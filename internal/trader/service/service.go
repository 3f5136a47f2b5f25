package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	bitgetentity "signaltrader/internal/bitget/entity"
	bitget "signaltrader/internal/bitget/service"
	"signaltrader/internal/metrics"
	"signaltrader/internal/risk"
	"signaltrader/internal/signal/entity"
	"signaltrader/internal/signal/repository"
	signalsvc "signaltrader/internal/signal/service"
)

// буфер безубытка: стоп ставится на тик цены лучше входа, чтобы закрытие
// по нему покрыло комиссии
const breakevenBuffer = 1.0

// ProcessResult итог обработки одного алерта
type ProcessResult struct {
	Signal   *entity.TradingSignal        `json:"signal"`
	Strategy string                       `json:"strategy"`
	Plan     *risk.OrderPlan              `json:"plan"`
	Orders   []bitgetentity.ExecutedOrder `json:"orders"`
	PlanID   string                       `json:"plan_id"`
}

// Service конвейер обработки алертов: разбор -> маршрутизация -> план ->
// исполнение -> наблюдение -> журнал
type Service struct {
	parser     *signalsvc.Parser
	router     *signalsvc.Router
	plannerCfg risk.PlannerConfig
	executor   *bitget.Executor
	watcher    *bitget.PositionWatcher
	journal    repository.JournalRepository
}

func NewService(
	parser *signalsvc.Parser,
	router *signalsvc.Router,
	plannerCfg risk.PlannerConfig,
	executor *bitget.Executor,
	watcher *bitget.PositionWatcher,
	journal repository.JournalRepository,
) *Service {
	return &Service{
		parser:     parser,
		router:     router,
		plannerCfg: plannerCfg,
		executor:   executor,
		watcher:    watcher,
		journal:    journal,
	}
}

// ProcessAlert проводит текст алерта через весь конвейер.
// ErrNotASignal и ErrParseIncomplete возвращаются как есть, чтобы вызывающий
// отличал шум от ошибок исполнения.
func (s *Service) ProcessAlert(ctx context.Context, source, messageID, text string) (*ProcessResult, error) {
	if messageID == "" {
		messageID = uuid.NewString()
	}

	sig, err := s.parser.Parse(messageID, source, text)
	if err != nil {
		if errors.Is(err, signalsvc.ErrNotASignal) {
			metrics.SignalsProcessedTotal.WithLabelValues(source, "rejected").Inc()
		} else {
			metrics.SignalsProcessedTotal.WithLabelValues(source, "incomplete").Inc()
		}
		return nil, err
	}

	if sig.EntryLow <= 0 {
		metrics.SignalsProcessedTotal.WithLabelValues(source, "incomplete").Inc()
		return nil, fmt.Errorf("%w: entry zone", signalsvc.ErrParseIncomplete)
	}
	if !sig.HasStop() {
		metrics.SignalsProcessedTotal.WithLabelValues(source, "incomplete").Inc()
		return nil, fmt.Errorf("%w: stop loss", signalsvc.ErrParseIncomplete)
	}

	strategy := s.router.Route(sig, source)
	params := s.router.ExecutionParams(strategy)
	sig.Source = strategy

	// Без тейков в тексте лесенка строится от R:R — 2R и 3R от входа
	if len(sig.TakeProfits) == 0 {
		sig.TakeProfits = fallbackTakeProfits(sig)
		log.Printf("TraderService: no take profits in signal %s, using R:R ladder %v", messageID, sig.TakeProfits)
	}

	leverage := sig.Leverage
	if leverage <= 0 {
		leverage = params.LeverageMin
	}
	if leverage > params.LeverageMax {
		leverage = params.LeverageMax
	}

	plannerCfg := s.plannerCfg
	plannerCfg.RiskLegPct = params.RiskLegPct
	planner := risk.NewPlanner(plannerCfg)

	plan, err := planner.BuildPlan(strategy, sig.Direction, sig.EntryZone(), sig.StopPrice, sig.TakeProfits, "1/2", leverage)
	if err != nil {
		metrics.SignalsProcessedTotal.WithLabelValues(strategy, "plan_error").Inc()
		return nil, fmt.Errorf("build plan: %w", err)
	}
	plan.EntryType = params.EntryType

	orders, record, err := s.executor.PlaceAll(ctx, plan)
	if err != nil {
		metrics.SignalsProcessedTotal.WithLabelValues(strategy, "exec_error").Inc()
		return nil, fmt.Errorf("place orders: %w", err)
	}

	s.watcher.Register(record)

	if s.journal != nil {
		entry := repository.FromSignal(sig, plan.Symbol, plan.QtyTotal())
		if err := s.journal.Save(ctx, entry); err != nil {
			// Журнал не критичен для исполнения
			log.Printf("TraderService: Failed to save journal entry for %s: %v", messageID, err)
		}
	}

	metrics.SignalsProcessedTotal.WithLabelValues(strategy, "ok").Inc()
	log.Printf("TraderService: alert %s processed: %s %s plan=%s orders=%d",
		messageID, strategy, sig.Direction, record.PlanID, len(orders))

	return &ProcessResult{
		Signal:   sig,
		Strategy: strategy,
		Plan:     plan,
		Orders:   orders,
		PlanID:   record.PlanID,
	}, nil
}

// HandleBreakeven переносит стоп плана в безубыток. Вызывается watcher'ом
// не более одного раза на план.
func (s *Service) HandleBreakeven(rec *bitget.PlanRecord) error {
	bePrice := rec.Entry - breakevenBuffer
	if rec.Side == entity.DirectionShort {
		bePrice = rec.Entry + breakevenBuffer
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.executor.MoveStopToBreakeven(ctx, rec, bePrice); err != nil {
		return err
	}
	log.Printf("TraderService: plan %s stop moved to breakeven %.2f", rec.PlanID, bePrice)
	return nil
}

// fallbackTakeProfits строит лесенку 2R/3R от входа в сторону сделки
func fallbackTakeProfits(sig *entity.TradingSignal) []float64 {
	entry := (sig.EntryLow + sig.EntryHigh) / 2
	r := math.Abs(entry - sig.StopPrice)

	dir := 1.0
	if sig.Direction == entity.DirectionShort {
		dir = -1.0
	}
	tp1 := math.Round((entry+dir*2*r)*100) / 100
	tp2 := math.Round((entry+dir*3*r)*100) / 100
	return []float64{tp1, tp2}
}
