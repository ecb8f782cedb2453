package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/omniroute/work4food/internal/assignment"
	"github.com/omniroute/work4food/internal/cache"
	"github.com/omniroute/work4food/internal/cost"
	"github.com/omniroute/work4food/internal/domain"
	"github.com/omniroute/work4food/internal/events"
	"github.com/omniroute/work4food/internal/guarantee"
	"github.com/omniroute/work4food/internal/repository"
)

// Result summarizes one window's processing run, mirroring the fields the
// original process_batch() returns to its caller for logging/metrics.
type Result struct {
	BatchID         string
	WindowStart     time.Time
	WindowEnd       time.Time
	TotalOrders     int
	AssignedOrders  int
	AvailableAgents int
	GuaranteeRatio  float64
}

// Processor runs one window's end-to-end matching pipeline: pull intake and
// roster, predict omega, solve the assignment, execute it against the
// repositories, credit active-hours, update the guarantee predictor, and
// persist an audit record. Grounded on the original BatchProcessor.process_batch.
type Processor struct {
	Couriers  repository.CourierRepository
	Orders    repository.OrderRepository
	Batches   repository.BatchRepository
	Engine    *assignment.Engine
	Predictor *guarantee.Predictor
	Logger    *zap.Logger
	Now       func() time.Time

	// WindowDuration is both the lookback used to bound order intake and
	// the rate at which active-hours accrue per window (W/60 hours).
	WindowDuration time.Duration

	// CarryForwardPending, when true, lifts the lower bound on intake so
	// orders that arrived before the current window and are still pending
	// are picked up again instead of only orders created within the
	// window itself.
	CarryForwardPending bool

	// Events, RosterCache, and Lock are optional: a nil value disables
	// the corresponding side effect so unit tests and single-replica
	// deployments can run without Kafka/Redis wired up.
	Events      *events.Publisher
	RosterCache *cache.RosterCache
	Lock        *cache.BatchLock
}

// New creates a Processor.
func New(couriers repository.CourierRepository, orders repository.OrderRepository, batches repository.BatchRepository,
	calculator *cost.Calculator, predictor *guarantee.Predictor, windowDuration time.Duration, logger *zap.Logger, now func() time.Time) *Processor {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		Couriers:       couriers,
		Orders:         orders,
		Batches:        batches,
		Engine:         assignment.New(calculator),
		Predictor:      predictor,
		Logger:         logger,
		Now:            now,
		WindowDuration: windowDuration,
	}
}

// ProcessBatch runs a single window, matching pending orders against
// available couriers at windowStart. Re-invoking with a windowStart whose
// batch_id was already processed returns the existing record unchanged
// instead of re-running the match.
func (p *Processor) ProcessBatch(ctx context.Context, windowStart time.Time) (*Result, error) {
	batchID := domain.BatchIDFromWindowStart(windowStart)
	windowEnd := windowStart.Add(p.WindowDuration)

	if existing, err := p.Batches.FindByID(ctx, batchID); err == nil {
		p.Logger.Info("batch already processed, returning existing record", zap.String("batch_id", batchID))
		return resultFromRecord(existing), nil
	} else if !errors.Is(err, domain.ErrBatchNotFound) {
		return nil, fmt.Errorf("process batch %s: check existing record: %w", batchID, err)
	}

	if p.Lock != nil {
		acquired, err := p.Lock.Acquire(ctx, batchID, p.WindowDuration)
		if err != nil {
			return nil, fmt.Errorf("process batch %s: acquire lock: %w", batchID, err)
		}
		if !acquired {
			p.Logger.Warn("another replica already holds the batch lock, skipping", zap.String("batch_id", batchID))
			if existing, err := p.Batches.FindByID(ctx, batchID); err == nil {
				return resultFromRecord(existing), nil
			}
			return nil, fmt.Errorf("process batch %s: lock held by another replica", batchID)
		}
		defer p.Lock.Release(ctx, batchID)
	}

	intakeStart := windowStart
	if p.CarryForwardPending {
		intakeStart = time.Time{}
	}
	orders, err := p.Orders.FindPending(ctx, intakeStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("process batch %s: find pending orders: %w", batchID, err)
	}
	couriers, err := p.Couriers.FindAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("process batch %s: find available couriers: %w", batchID, err)
	}

	if p.RosterCache != nil {
		if err := p.RosterCache.SetRoster(ctx, "work4food:roster:"+batchID, couriers, p.WindowDuration); err != nil {
			p.Logger.Warn("failed to cache roster snapshot", zap.String("batch_id", batchID), zap.Error(err))
		}
	}

	omega := p.Predictor.Predict()

	pairings := p.Engine.Assign(couriers, orders, omega)

	assignedCount, err := p.executeAssignments(ctx, pairings, batchID, windowStart)
	if err != nil {
		return nil, fmt.Errorf("process batch %s: %w", batchID, err)
	}

	if err := p.creditActiveHours(ctx, couriers); err != nil {
		return nil, fmt.Errorf("process batch %s: %w", batchID, err)
	}

	var totalWork, totalActive float64
	for _, c := range couriers {
		totalWork += c.WorkHours
		totalActive += c.ActiveHours
	}
	if totalActive > 0 {
		p.Predictor.Update(totalWork, totalActive)
	}

	record := &domain.BatchRecord{
		BatchID:         batchID,
		WindowStart:     windowStart,
		WindowEnd:       windowEnd,
		TotalOrders:     len(orders),
		AssignedOrders:  assignedCount,
		AvailableAgents: len(couriers),
		OmegaUsed:       omega,
		CreatedAt:       p.Now(),
	}
	if err := p.Batches.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("process batch %s: save audit record: %w", batchID, err)
	}

	if p.Events != nil {
		if err := p.Events.PublishBatchCompleted(ctx, events.BatchCompletedEvent{
			BatchID:        batchID,
			WindowStart:    windowStart,
			WindowEnd:      windowEnd,
			TotalOrders:    len(orders),
			AssignedOrders: assignedCount,
			GuaranteeRatio: omega,
		}); err != nil {
			p.Logger.Warn("failed to publish batch completed event", zap.String("batch_id", batchID), zap.Error(err))
		}
	}

	p.Logger.Info("batch processed",
		zap.String("batch_id", batchID),
		zap.Int("total_orders", len(orders)),
		zap.Int("assigned_orders", assignedCount),
		zap.Int("available_agents", len(couriers)),
		zap.Float64("guarantee_ratio", omega),
	)

	return &Result{
		BatchID:         batchID,
		WindowStart:     windowStart,
		WindowEnd:       windowEnd,
		TotalOrders:     len(orders),
		AssignedOrders:  assignedCount,
		AvailableAgents: len(couriers),
		GuaranteeRatio:  omega,
	}, nil
}

func resultFromRecord(rec *domain.BatchRecord) *Result {
	return &Result{
		BatchID:         rec.BatchID,
		WindowStart:     rec.WindowStart,
		WindowEnd:       rec.WindowEnd,
		TotalOrders:     rec.TotalOrders,
		AssignedOrders:  rec.AssignedOrders,
		AvailableAgents: rec.AvailableAgents,
		GuaranteeRatio:  rec.OmegaUsed,
	}
}

// executeAssignments persists the matcher's solution: each matched order
// moves to assigned with its batch stamp and estimated work-hours, each
// matched courier moves to en_route. Mirrors the original's
// _execute_assignments. An order whose write hits a ConcurrencyConflict is
// logged and skipped, and the remaining pairs still run; any other order
// write error, and any courier write error, aborts the tick.
func (p *Processor) executeAssignments(ctx context.Context, pairings []assignment.Pairing, batchID string, windowStart time.Time) (assignedCount int, err error) {
	for _, pair := range pairings {
		order := pair.Order
		courier := pair.Courier

		now := p.Now()
		courierID := courier.ID

		prevOrderUpdated := order.UpdatedAt
		order.Status = domain.OrderStatusAssigned
		order.AssignedCourierID = &courierID
		order.BatchID = batchID
		order.AssignedAt = &now
		order.EstimatedWorkHours = pair.WorkHours
		order.AssignmentCost = pair.Cost
		order.UpdatedAt = now
		if err := p.Orders.CompareAndSwap(ctx, order, prevOrderUpdated); err != nil {
			var conflict *domain.ConcurrencyConflict
			if errors.As(err, &conflict) {
				p.Logger.Warn("order changed since intake, skipping it in this batch",
					zap.String("batch_id", batchID), zap.String("order_id", order.ID.String()), zap.Error(err))
				continue
			}
			return assignedCount, fmt.Errorf("assign order %s: %w", order.ID, err)
		}

		prevCourierUpdated := courier.UpdatedAt
		courier.Status = domain.CourierStatusEnRoute
		courier.UpdatedAt = now
		if err := p.Couriers.CompareAndSwap(ctx, courier, prevCourierUpdated); err != nil {
			return assignedCount, fmt.Errorf("update courier %s: %w", courier.ID, err)
		}

		assignedCount++

		if p.Events != nil {
			if err := p.Events.PublishOrderAssigned(ctx, events.OrderAssignedEvent{
				OrderID:            order.ID.String(),
				CourierID:          courier.ID.String(),
				BatchID:            batchID,
				EstimatedWorkHours: order.EstimatedWorkHours,
				AssignmentCost:     order.AssignmentCost,
			}); err != nil {
				p.Logger.Warn("failed to publish order assigned event", zap.String("order_id", order.ID.String()), zap.Error(err))
			}
		}
	}
	return assignedCount, nil
}

// creditActiveHours adds WindowDuration/60 hours to every courier in the
// roster pulled for this window, whether or not it was matched to an
// order. This is what lets G = omega * ActiveHours grow window over
// window even for couriers who sit idle.
func (p *Processor) creditActiveHours(ctx context.Context, couriers []*domain.Courier) error {
	delta := p.WindowDuration.Minutes() / 60.0
	for _, c := range couriers {
		prevUpdated := c.UpdatedAt
		c.ActiveHours += delta
		c.UpdatedAt = p.Now()
		if err := p.Couriers.CompareAndSwap(ctx, c, prevUpdated); err != nil {
			return fmt.Errorf("credit active hours for courier %s: %w", c.ID, err)
		}
	}
	return nil
}
