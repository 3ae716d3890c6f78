package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/product-tracker/internal/repository"
	"github.com/tuanvumaihuynh/product-tracker/internal/storage/db"
)

var _ repository.OutboxMsgRepository = (*OutboxMsgRepository)(nil)

type outboxMsg struct {
	ID           string
	Topic        string
	Headers      map[string]string
	Payload      json.RawMessage
	PartitionKey *string
	CreatedAt    time.Time
	ProcessedAt  *time.Time
	Error        *string
}

type OutboxMsgRepository struct {
	store *Store
	now   func() time.Time
}

func NewOutboxMsgRepository(store *Store) *OutboxMsgRepository {
	return &OutboxMsgRepository{store: store, now: time.Now}
}

func (r *OutboxMsgRepository) WithDB(db.DB) repository.OutboxMsgRepository {
	return r
}

func (r *OutboxMsgRepository) CreateOutboxMsg(_ context.Context, params repository.CreateOutboxMsgParams) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate uuid v7: %w", err)
	}

	txn := r.store.db.Txn(true)
	defer txn.Abort()

	if err := txn.Insert(outboxMsgTable, &outboxMsg{
		ID:           id.String(),
		Topic:        params.Topic,
		Headers:      maps.Clone(params.Headers),
		Payload:      append(json.RawMessage(nil), params.Payload...),
		PartitionKey: params.PartitionKey,
		CreatedAt:    r.now(),
	}); err != nil {
		return fmt.Errorf("insert outbox msg: %w", err)
	}

	txn.Commit()
	return nil
}

func (r *OutboxMsgRepository) ListUnprocessedOutboxMsgs(_ context.Context, params repository.ListUnprocessedOutboxMsgsParams) ([]repository.ListUnprocessedOutboxMsgsResult, error) {
	msgs, err := r.all()
	if err != nil {
		return nil, err
	}

	results := make([]repository.ListUnprocessedOutboxMsgsResult, 0, len(msgs))
	for _, msg := range msgs {
		if msg.ProcessedAt != nil {
			continue
		}
		if len(results) == int(params.BatchSize) {
			break
		}

		results = append(results, repository.ListUnprocessedOutboxMsgsResult{
			ID:           uuid.MustParse(msg.ID),
			Topic:        msg.Topic,
			Headers:      maps.Clone(msg.Headers),
			Payload:      msg.Payload,
			PartitionKey: msg.PartitionKey,
		})
	}

	return results, nil
}

func (r *OutboxMsgRepository) BulkUpdateOutboxMsgs(_ context.Context, params repository.BulkUpdateOutboxMsgsParams) error {
	txn := r.store.db.Txn(true)
	defer txn.Abort()

	now := r.now()
	for _, item := range params.Items {
		obj, err := txn.First(outboxMsgTable, indexID, item.ID.String())
		if err != nil {
			return fmt.Errorf("first outbox msg: %w", err)
		}
		if obj == nil {
			continue
		}

		updated := *obj.(*outboxMsg)
		updated.ProcessedAt = &now
		updated.Error = item.Error
		if err := txn.Insert(outboxMsgTable, &updated); err != nil {
			return fmt.Errorf("update outbox msg: %w", err)
		}
	}

	txn.Commit()
	return nil
}

func (r *OutboxMsgRepository) PurgeProcessedOutboxMsgs(_ context.Context, params repository.PurgeProcessedOutboxMsgsParams) (int64, error) {
	txn := r.store.db.Txn(true)
	defer txn.Abort()

	it, err := txn.Get(outboxMsgTable, indexID)
	if err != nil {
		return 0, fmt.Errorf("get outbox msgs: %w", err)
	}

	var expired []*outboxMsg
	for obj := it.Next(); obj != nil; obj = it.Next() {
		msg := obj.(*outboxMsg)
		if msg.ProcessedAt != nil && msg.ProcessedAt.Before(params.ProcessedBefore) {
			expired = append(expired, msg)
		}
	}

	for _, msg := range expired {
		if err := txn.Delete(outboxMsgTable, msg); err != nil {
			return 0, fmt.Errorf("delete outbox msg: %w", err)
		}
	}

	txn.Commit()
	return int64(len(expired)), nil
}

// all returns every stored message ordered by creation time.
func (r *OutboxMsgRepository) all() ([]outboxMsg, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(outboxMsgTable, indexID)
	if err != nil {
		return nil, fmt.Errorf("get outbox msgs: %w", err)
	}

	var msgs []outboxMsg
	for obj := it.Next(); obj != nil; obj = it.Next() {
		msgs = append(msgs, *obj.(*outboxMsg))
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})

	return msgs, nil
}
