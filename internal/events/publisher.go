// Package events writes domain events through the transactional outbox
// so they commit together with the rows that caused them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utkarshprasad2/FrugalTops/internal/database"
	"github.com/utkarshprasad2/FrugalTops/internal/models"
)

const EventTypePriceChanged = "PRICE_CHANGED"

// PriceChangedPayload is the JSON body relayed to stream:price_events
// whenever a significant price movement is recorded.
type PriceChangedPayload struct {
	ProductID string    `json:"productId"`
	Retailer  string    `json:"retailer"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	IsOnSale  bool      `json:"isOnSale"`
	Timestamp time.Time `json:"timestamp"`
}

type Publisher struct {
	db     *database.DB
	outbox *database.OutboxRepository
	logger *slog.Logger
}

func NewPublisher(db *database.DB, outbox *database.OutboxRepository, logger *slog.Logger) *Publisher {
	return &Publisher{
		db:     db,
		outbox: outbox,
		logger: logger.With("component", "event-publisher"),
	}
}

// PublishPriceChanged records a price change event for the relay to
// pick up. The insert runs in its own transaction when no outer one
// is supplied.
func (p *Publisher) PublishPriceChanged(ctx context.Context, point models.PricePoint) error {
	payload := PriceChangedPayload{
		ProductID: point.ProductID,
		Retailer:  point.Retailer,
		Price:     point.Price,
		Currency:  point.Currency,
		IsOnSale:  point.IsOnSale,
		Timestamp: point.Timestamp,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal price event: %w", err)
	}

	event := &database.OutboxEvent{
		AggregateType: "product",
		AggregateID:   point.ProductID,
		EventType:     EventTypePriceChanged,
		Payload:       body,
		TargetStream:  database.PriceEventStream,
	}

	err = p.db.WithTx(ctx, func(tx pgx.Tx) error {
		return p.outbox.InsertWithTx(ctx, tx, event)
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue price event: %w", err)
	}

	p.logger.Debug("price event enqueued",
		"product_id", point.ProductID,
		"retailer", point.Retailer,
		"price", point.Price)

	return nil
}
