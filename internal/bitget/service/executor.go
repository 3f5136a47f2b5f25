package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"signaltrader/internal/bitget/entity"
	"signaltrader/internal/metrics"
	"signaltrader/internal/risk"
	signalentity "signaltrader/internal/signal/entity"
)

// ErrGatewayUnreachable биржа недоступна при боевом исполнении.
// В этом случае не размещается ни один ордер из плана.
var ErrGatewayUnreachable = errors.New("exchange gateway unreachable")

// Executor превращает OrderPlan в последовательность заявок: вход, стоп,
// лесенка тейков. Каждая заявка изолирована: отказ одной логируется и не
// отменяет остальные.
type Executor struct {
	gateway ExchangeGateway
	dryRun  bool
}

func NewExecutor(gateway ExchangeGateway, dryRun bool) *Executor {
	return &Executor{gateway: gateway, dryRun: dryRun}
}

// PlanID детерминированный идентификатор плана. Клиентские идентификаторы
// всех заявок плана выводятся из него, что делает повторную отправку того же
// плана идемпотентной на стороне биржи.
func PlanID(symbol string, side signalentity.Direction, entry, stop float64) string {
	return fmt.Sprintf("%s:%s:%.2f:%.2f:%d", symbol, side, entry, stop, time.Now().UnixNano())
}

func clientOID(planID, suffix string) string {
	return planID + ":" + suffix
}

// PlaceAll размещает все заявки плана и возвращает запись для watcher'а.
// В dry-run режиме биржа не вызывается, заявки синтезируются локально.
func (e *Executor) PlaceAll(ctx context.Context, plan *risk.OrderPlan) ([]entity.ExecutedOrder, *PlanRecord, error) {
	planID := PlanID(plan.Symbol, plan.Side, plan.EntryPrice, plan.SLPrice)

	if !e.dryRun {
		if err := e.gateway.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
		}
	}

	var orders []entity.ExecutedOrder

	// Вход
	entrySide := "open_long"
	closeSide := "close_long"
	if plan.Side == signalentity.DirectionShort {
		entrySide = "open_short"
		closeSide = "close_short"
	}

	if !e.dryRun {
		if err := e.gateway.SetLeverage(ctx, plan.Symbol, plan.Leg1.Leverage, ""); err != nil {
			log.Printf("Executor: Failed to set leverage for %s: %v", plan.Symbol, err)
		}
	}

	entryType := entity.TypeLimit
	entryPrice := plan.EntryPrice
	if plan.EntryType == risk.EntryMarket {
		entryType = entity.TypeMarket
		entryPrice = 0
	}
	orders = append(orders, e.place(ctx, entity.OrderRequest{
		Symbol:    plan.Symbol,
		Side:      entrySide,
		Type:      entryType,
		Size:      plan.Leg1.Qty,
		Price:     entryPrice,
		ClientOID: clientOID(planID, "entry"),
	}, entity.KindEntry))

	// Стоп на весь объем ноги, reduce-only
	orders = append(orders, e.place(ctx, entity.OrderRequest{
		Symbol:       plan.Symbol,
		Side:         closeSide,
		Type:         entity.TypeStop,
		Size:         plan.Leg1.Qty,
		TriggerPrice: plan.SLPrice,
		ReduceOnly:   true,
		ClientOID:    clientOID(planID, "sl"),
	}, entity.KindSL))

	// Лесенка тейков: лимитные reduce-only, нулевые доли пропускаются
	for i, level := range plan.TPLevels {
		if i >= len(plan.TPShares) || plan.TPShares[i] <= 0 {
			continue
		}
		orders = append(orders, e.place(ctx, entity.OrderRequest{
			Symbol:     plan.Symbol,
			Side:       closeSide,
			Type:       entity.TypeLimit,
			Size:       plan.Leg1.Qty * plan.TPShares[i],
			Price:      level,
			ReduceOnly: true,
			ClientOID:  clientOID(planID, fmt.Sprintf("tp%d", i+1)),
		}, entity.KindTP))
	}

	record := &PlanRecord{
		PlanID:           planID,
		Symbol:           plan.Symbol,
		Side:             plan.Side,
		Entry:            plan.EntryPrice,
		Stop:             plan.SLPrice,
		TPs:              append([]float64(nil), plan.TPLevels...),
		TPShares:         append([]float64(nil), plan.TPShares...),
		BreakevenAfterTP: plan.BreakevenAfterTP,
		QtyTotal:         plan.QtyTotal(),
	}

	log.Printf("Executor: plan %s placed: %d orders (dry_run=%v)", planID, len(orders), e.dryRun)
	return orders, record, nil
}

// place размещает одну заявку, в dry-run синтезирует её локально.
// Отказ биржи превращается в запись со статусом CANCELED.
func (e *Executor) place(ctx context.Context, req entity.OrderRequest, kind string) entity.ExecutedOrder {
	order := entity.ExecutedOrder{
		Symbol:     req.Symbol,
		Side:       req.Side,
		Price:      req.Price,
		Qty:        req.Size,
		Status:     entity.StatusNew,
		Kind:       kind,
		ReduceOnly: req.ReduceOnly,
	}
	if req.Type == entity.TypeStop {
		order.Price = req.TriggerPrice
	}

	if e.dryRun {
		order.OrderID = "dry:" + req.ClientOID
		metrics.OrdersSubmittedTotal.WithLabelValues(kind, "dry_run").Inc()
		log.Printf("Executor: [DRY RUN] %s %s %s size=%.6f price=%.2f", req.Symbol, req.Side, req.Type, req.Size, order.Price)
		return order
	}

	ack, err := e.gateway.PlaceOrder(ctx, req)
	if err != nil {
		log.Printf("Executor: Failed to place %s order %s: %v", kind, req.ClientOID, err)
		order.Status = entity.StatusCanceled
		metrics.OrdersSubmittedTotal.WithLabelValues(kind, "error").Inc()
		return order
	}

	order.OrderID = ack.OrderID
	metrics.OrdersSubmittedTotal.WithLabelValues(kind, "ok").Inc()
	return order
}

// MoveStopToBreakeven переносит стоп плана в безубыток. В dry-run только
// логирует. Новый clientOid выводится из planID с суффиксом "sl-be".
func (e *Executor) MoveStopToBreakeven(ctx context.Context, rec *PlanRecord, bePrice float64) error {
	if e.dryRun {
		log.Printf("Executor: [DRY RUN] breakeven stop for plan %s -> %.2f", rec.PlanID, bePrice)
		return nil
	}

	closeSide := "close_long"
	if rec.Side == signalentity.DirectionShort {
		closeSide = "close_short"
	}

	err := e.gateway.ModifyStop(ctx, rec.Symbol, closeSide, rec.QtyTotal, bePrice,
		clientOID(rec.PlanID, "sl"), clientOID(rec.PlanID, "sl-be"))
	if err != nil {
		return fmt.Errorf("move stop to breakeven: %w", err)
	}
	return nil
}
