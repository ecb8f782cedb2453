package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/omniroute/work4food/internal/domain"
)

// PoolConfig configures the Postgres connection pool. Grounded on the
// teacher's pkg/database.YugabyteConfig / cmd/server/main.go's
// initDatabase, narrowed to the single-region Postgres case this service
// targets — the Yugabyte-specific topology/load-balancing knobs don't have
// a home here and are dropped rather than carried as dead fields.
type PoolConfig struct {
	DatabaseURL     string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultPoolConfig mirrors the teacher's connection pool defaults.
func DefaultPoolConfig(databaseURL string) PoolConfig {
	return PoolConfig{
		DatabaseURL:     databaseURL,
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// NewPool creates and pings a pgx connection pool.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// PostgresCourierRepository is a CourierRepository backed by Postgres.
type PostgresCourierRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCourierRepository wraps an existing pool.
func NewPostgresCourierRepository(pool *pgxpool.Pool) *PostgresCourierRepository {
	return &PostgresCourierRepository{pool: pool}
}

const courierColumns = `id, lat, lon, status, speed_kmph, work_hours, active_hours, earnings, handout, total_pay, updated_at`

func scanCourier(row pgx.Row) (*domain.Courier, error) {
	var c domain.Courier
	var earnings, handout, totalPay string
	if err := row.Scan(&c.ID, &c.Location.Lat, &c.Location.Lon, &c.Status, &c.SpeedKmph,
		&c.WorkHours, &c.ActiveHours, &earnings, &handout, &totalPay, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Earnings, _ = decimal.NewFromString(earnings)
	c.Handout, _ = decimal.NewFromString(handout)
	c.TotalPay, _ = decimal.NewFromString(totalPay)
	return &c, nil
}

func (r *PostgresCourierRepository) FindByID(ctx context.Context, courierID uuid.UUID) (*domain.Courier, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+courierColumns+` FROM couriers WHERE id = $1`, courierID)
	c, err := scanCourier(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("courier %s: %w", courierID, domain.ErrCourierNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find courier %s: %w", courierID, err)
	}
	return c, nil
}

func (r *PostgresCourierRepository) FindAvailable(ctx context.Context) ([]*domain.Courier, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+courierColumns+` FROM couriers WHERE status = $1 ORDER BY id`, domain.CourierStatusAvailable)
	if err != nil {
		return nil, fmt.Errorf("find available couriers: %w", err)
	}
	defer rows.Close()

	var out []*domain.Courier
	for rows.Next() {
		c, err := scanCourier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan courier: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresCourierRepository) Save(ctx context.Context, courier *domain.Courier) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO couriers (id, lat, lon, status, speed_kmph, work_hours, active_hours, earnings, handout, total_pay, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			lat = EXCLUDED.lat, lon = EXCLUDED.lon, status = EXCLUDED.status,
			speed_kmph = EXCLUDED.speed_kmph, work_hours = EXCLUDED.work_hours,
			active_hours = EXCLUDED.active_hours, earnings = EXCLUDED.earnings,
			handout = EXCLUDED.handout, total_pay = EXCLUDED.total_pay, updated_at = EXCLUDED.updated_at`,
		courier.ID, courier.Location.Lat, courier.Location.Lon, courier.Status, courier.SpeedKmph,
		courier.WorkHours, courier.ActiveHours, courier.Earnings.String(), courier.Handout.String(),
		courier.TotalPay.String(), courier.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save courier %s: %w", courier.ID, err)
	}
	return nil
}

func (r *PostgresCourierRepository) CompareAndSwap(ctx context.Context, courier *domain.Courier, expectedUpdatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE couriers SET
			lat = $1, lon = $2, status = $3, speed_kmph = $4, work_hours = $5,
			active_hours = $6, earnings = $7, handout = $8, total_pay = $9, updated_at = $10
		WHERE id = $11 AND updated_at = $12`,
		courier.Location.Lat, courier.Location.Lon, courier.Status, courier.SpeedKmph,
		courier.WorkHours, courier.ActiveHours, courier.Earnings.String(), courier.Handout.String(),
		courier.TotalPay.String(), courier.UpdatedAt, courier.ID, expectedUpdatedAt)
	if err != nil {
		return fmt.Errorf("compare-and-swap courier %s: %w", courier.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ConcurrencyConflict{EntityID: courier.ID, Reason: "courier was modified since it was read"}
	}
	return nil
}

// PostgresOrderRepository is an OrderRepository backed by Postgres.
type PostgresOrderRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresOrderRepository wraps an existing pool.
func NewPostgresOrderRepository(pool *pgxpool.Pool) *PostgresOrderRepository {
	return &PostgresOrderRepository{pool: pool}
}

const orderColumns = `id, pickup_lat, pickup_lon, dropoff_lat, dropoff_lon, status, assigned_courier_id,
	batch_id, estimated_work_hours, actual_work_hours, assignment_cost, created_at, assigned_at,
	picked_up_at, delivered_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	if err := row.Scan(&o.ID, &o.Pickup.Lat, &o.Pickup.Lon, &o.Dropoff.Lat, &o.Dropoff.Lon, &o.Status,
		&o.AssignedCourierID, &o.BatchID, &o.EstimatedWorkHours, &o.ActualWorkHours, &o.AssignmentCost,
		&o.CreatedAt, &o.AssignedAt, &o.PickedUpAt, &o.DeliveredAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PostgresOrderRepository) FindByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrOrderNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", orderID, err)
	}
	return o, nil
}

// FindPending returns pending orders created in [windowStart, windowEnd). A
// zero windowStart lifts the lower bound entirely, which is how callers
// implement carry_forward_pending without a second query shape.
func (r *PostgresOrderRepository) FindPending(ctx context.Context, windowStart, windowEnd time.Time) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = $1 AND created_at < $2 ORDER BY created_at`
	args := []interface{}{domain.OrderStatusPending, windowEnd}
	if !windowStart.IsZero() {
		query = `SELECT ` + orderColumns + ` FROM orders WHERE status = $1 AND created_at >= $2 AND created_at < $3 ORDER BY created_at`
		args = []interface{}{domain.OrderStatusPending, windowStart, windowEnd}
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find pending orders: %w", err)
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO orders (id, pickup_lat, pickup_lon, dropoff_lat, dropoff_lon, status, assigned_courier_id,
			batch_id, estimated_work_hours, actual_work_hours, assignment_cost, created_at, assigned_at,
			picked_up_at, delivered_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status, assigned_courier_id = EXCLUDED.assigned_courier_id,
			batch_id = EXCLUDED.batch_id, estimated_work_hours = EXCLUDED.estimated_work_hours,
			actual_work_hours = EXCLUDED.actual_work_hours, assignment_cost = EXCLUDED.assignment_cost,
			assigned_at = EXCLUDED.assigned_at, picked_up_at = EXCLUDED.picked_up_at,
			delivered_at = EXCLUDED.delivered_at, updated_at = EXCLUDED.updated_at`,
		order.ID, order.Pickup.Lat, order.Pickup.Lon, order.Dropoff.Lat, order.Dropoff.Lon, order.Status,
		order.AssignedCourierID, order.BatchID, order.EstimatedWorkHours, order.ActualWorkHours,
		order.AssignmentCost, order.CreatedAt, order.AssignedAt, order.PickedUpAt, order.DeliveredAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save order %s: %w", order.ID, err)
	}
	return nil
}

func (r *PostgresOrderRepository) CompareAndSwap(ctx context.Context, order *domain.Order, expectedUpdatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders SET
			status = $1, assigned_courier_id = $2, batch_id = $3, estimated_work_hours = $4,
			actual_work_hours = $5, assignment_cost = $6, assigned_at = $7, picked_up_at = $8,
			delivered_at = $9, updated_at = $10
		WHERE id = $11 AND updated_at = $12`,
		order.Status, order.AssignedCourierID, order.BatchID, order.EstimatedWorkHours,
		order.ActualWorkHours, order.AssignmentCost, order.AssignedAt, order.PickedUpAt,
		order.DeliveredAt, order.UpdatedAt, order.ID, expectedUpdatedAt)
	if err != nil {
		return fmt.Errorf("compare-and-swap order %s: %w", order.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ConcurrencyConflict{EntityID: order.ID, Reason: "order was modified since it was read"}
	}
	return nil
}

// PostgresBatchRepository is a BatchRepository backed by Postgres.
type PostgresBatchRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBatchRepository wraps an existing pool.
func NewPostgresBatchRepository(pool *pgxpool.Pool) *PostgresBatchRepository {
	return &PostgresBatchRepository{pool: pool}
}

const batchColumns = `batch_id, window_start, window_end, total_orders, assigned_orders, available_agents, omega_used, created_at`

func (r *PostgresBatchRepository) Save(ctx context.Context, record *domain.BatchRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO batch_records (`+batchColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (batch_id) DO UPDATE SET
			total_orders = EXCLUDED.total_orders, assigned_orders = EXCLUDED.assigned_orders,
			available_agents = EXCLUDED.available_agents, omega_used = EXCLUDED.omega_used`,
		record.BatchID, record.WindowStart, record.WindowEnd, record.TotalOrders,
		record.AssignedOrders, record.AvailableAgents, record.OmegaUsed, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("save batch record %s: %w", record.BatchID, err)
	}
	return nil
}

func (r *PostgresBatchRepository) FindByID(ctx context.Context, batchID string) (*domain.BatchRecord, error) {
	var rec domain.BatchRecord
	err := r.pool.QueryRow(ctx, `SELECT `+batchColumns+` FROM batch_records WHERE batch_id = $1`, batchID).
		Scan(&rec.BatchID, &rec.WindowStart, &rec.WindowEnd, &rec.TotalOrders, &rec.AssignedOrders,
			&rec.AvailableAgents, &rec.OmegaUsed, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("batch %s: %w", batchID, domain.ErrBatchNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find batch %s: %w", batchID, err)
	}
	return &rec, nil
}

func (r *PostgresBatchRepository) Recent(ctx context.Context, limit int) ([]*domain.BatchRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+batchColumns+` FROM batch_records ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent batch records: %w", err)
	}
	defer rows.Close()

	var out []*domain.BatchRecord
	for rows.Next() {
		var rec domain.BatchRecord
		if err := rows.Scan(&rec.BatchID, &rec.WindowStart, &rec.WindowEnd, &rec.TotalOrders,
			&rec.AssignedOrders, &rec.AvailableAgents, &rec.OmegaUsed, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan batch record: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
