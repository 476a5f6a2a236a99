package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Outbox event statuses. pending and failed rows are eligible for
// relaying; dead_letter rows need operator attention (surfaced on
// /health).
const (
	OutboxStatusPending    = "pending"
	OutboxStatusProcessed  = "processed"
	OutboxStatusFailed     = "failed"
	OutboxStatusDeadLetter = "dead_letter"

	// MaxRetryCount is the relay-failure bound before dead-lettering.
	MaxRetryCount = 5

	// PriceEventStream is the default target for price events.
	PriceEventStream = "stream:price_events"

	maxRetryBackoff = 5 * time.Minute
)

// OutboxEvent is one row of the transactional outbox. A price change
// and its event commit in the same transaction; the relay then moves
// pending rows onto the Redis stream.
type OutboxEvent struct {
	ID            uuid.UUID       `db:"id"`
	AggregateType string          `db:"aggregate_type"`
	AggregateID   string          `db:"aggregate_id"`
	EventType     string          `db:"event_type"`
	Payload       json.RawMessage `db:"payload"`
	TargetStream  string          `db:"target_stream"`
	Status        string          `db:"status"`
	RetryCount    int             `db:"retry_count"`
	ErrorMessage  *string         `db:"error_message"`
	CreatedAt     time.Time       `db:"created_at"`
	ProcessedAt   *time.Time      `db:"processed_at"`
	NextRetryAt   *time.Time      `db:"next_retry_at"`
}

type OutboxRepository struct {
	db *DB
}

func NewOutboxRepository(db *DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// InsertWithTx enqueues an event inside the caller's transaction,
// filling in identity and scheduling defaults.
func (r *OutboxRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, event *OutboxEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Status == "" {
		event.Status = OutboxStatusPending
	}
	if event.TargetStream == "" {
		event.TargetStream = PriceEventStream
	}

	now := time.Now()
	event.CreatedAt = now
	if event.NextRetryAt == nil {
		event.NextRetryAt = &now
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO outbox_event (
			id, aggregate_type, aggregate_id, event_type,
			payload, target_stream, status, retry_count,
			created_at, next_retry_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		event.ID, event.AggregateType, event.AggregateID, event.EventType,
		event.Payload, event.TargetStream, event.Status, event.RetryCount,
		event.CreatedAt, event.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	return nil
}

// GetPending returns relay-eligible events, oldest first: pending and
// failed rows whose retry time has come.
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT
			id, aggregate_type, aggregate_id, event_type,
			payload, target_stream, status, retry_count,
			error_message, created_at, processed_at, next_retry_at
		FROM outbox_event
		WHERE status IN ($1, $2)
			AND next_retry_at <= $3
		ORDER BY created_at ASC
		LIMIT $4`,
		OutboxStatusPending, OutboxStatusFailed, time.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		event, err := scanOutboxEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return events, nil
}

func scanOutboxEvent(rows pgx.Rows) (*OutboxEvent, error) {
	event := &OutboxEvent{}
	err := rows.Scan(
		&event.ID, &event.AggregateType, &event.AggregateID, &event.EventType,
		&event.Payload, &event.TargetStream, &event.Status, &event.RetryCount,
		&event.ErrorMessage, &event.CreatedAt, &event.ProcessedAt, &event.NextRetryAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	return event, nil
}

// MarkProcessed records that an event reached its stream.
func (r *OutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `
		UPDATE outbox_event
		SET status = $1, processed_at = $2
		WHERE id = $3`,
		OutboxStatusProcessed, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark event as processed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("event not found: %s", id)
	}

	return nil
}

// MarkFailed bumps the retry count atomically, then applies the
// resulting status transition and backoff schedule.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, processErr error) error {
	var retryCount int
	err := r.db.QueryRow(ctx, `
		UPDATE outbox_event
		SET retry_count = retry_count + 1, error_message = $2
		WHERE id = $1
		RETURNING retry_count`,
		id, processErr.Error()).Scan(&retryCount)
	if err != nil {
		return fmt.Errorf("failed to record event failure: %w", err)
	}

	status, nextRetryAt := failureTransition(retryCount)

	_, err = r.db.Exec(ctx, `
		UPDATE outbox_event
		SET status = $1, next_retry_at = $2
		WHERE id = $3`,
		status, nextRetryAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark event as failed: %w", err)
	}

	return nil
}

// failureTransition decides where a relay failure lands an event:
// dead_letter once retries are exhausted, otherwise failed with an
// exponential backoff (2s, 4s, 8s...) capped at maxRetryBackoff.
func failureTransition(retryCount int) (string, time.Time) {
	status := OutboxStatusFailed
	if retryCount >= MaxRetryCount {
		status = OutboxStatusDeadLetter
	}

	backoff := time.Duration(1<<retryCount) * time.Second
	if backoff > maxRetryBackoff || backoff <= 0 {
		backoff = maxRetryBackoff
	}
	return status, time.Now().Add(backoff)
}

// GetPendingCount returns how many events are waiting to be relayed.
func (r *OutboxRepository) GetPendingCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM outbox_event WHERE status IN ($1, $2)",
		OutboxStatusPending, OutboxStatusFailed).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending events: %w", err)
	}
	return count, nil
}

// GetDeadLetterCount returns how many events exhausted their retries.
func (r *OutboxRepository) GetDeadLetterCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM outbox_event WHERE status = $1",
		OutboxStatusDeadLetter).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count dead letter events: %w", err)
	}
	return count, nil
}
