package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/susu3304/lotterybot/internal/lottery"
)

// Save replaces every stored activity with the snapshot in one transaction.
func (db *DB) Save(ctx context.Context, snap *lottery.Snapshot) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM lottery_activities"); err != nil {
		return fmt.Errorf("failed to clear lottery_activities: %w", err)
	}

	batch := &pgx.Batch{}
	for gid, act := range snap.Activities {
		payload, err := json.Marshal(act)
		if err != nil {
			return fmt.Errorf("failed to encode activity %s: %w", gid, err)
		}
		batch.Queue(
			"INSERT INTO lottery_activities (group_id, payload, updated_at) VALUES ($1, $2, CURRENT_TIMESTAMP)",
			gid, payload,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert activities: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Load reads every activity. An empty table yields lottery.ErrNoSnapshot.
func (db *DB) Load(ctx context.Context) (*lottery.Snapshot, error) {
	rows, err := db.pool.Query(ctx, "SELECT group_id, payload FROM lottery_activities")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := &lottery.Snapshot{Activities: make(map[string]lottery.ActivitySnapshot)}
	for rows.Next() {
		var gid string
		var payload []byte
		if err := rows.Scan(&gid, &payload); err != nil {
			return nil, err
		}
		var act lottery.ActivitySnapshot
		if err := json.Unmarshal(payload, &act); err != nil {
			return nil, fmt.Errorf("failed to decode activity %s: %w", gid, err)
		}
		snap.Activities[gid] = act
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(snap.Activities) == 0 {
		return nil, lottery.ErrNoSnapshot
	}
	return snap, nil
}
