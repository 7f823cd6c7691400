package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/assassin/internal/models"
)

// InsertEvents persists a batch of audit events in one transaction.
// Events already stored (same id) are skipped so a replayed batch is harmless.
func (s *PostgresStore) InsertEvents(ctx context.Context, events []models.GameEvent) error {
	if len(events) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, s.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, ev := range events {
			payload, err := json.Marshal(ev.Payload)
			if err != nil {
				return fmt.Errorf("marshal payload of %s: %w", ev.ID, err)
			}
			batch.Queue(`
				INSERT INTO game_events (id, type, actor_id, payload, occurred_at)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (id) DO NOTHING`,
				ev.ID, string(ev.Type), ev.ActorID, payload, time.UnixMilli(ev.Timestamp),
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}
