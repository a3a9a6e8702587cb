package repository

import (
	"context"
	"fmt"
	slotserrors "slotswap/internal/slots/errors"
	"slotswap/pkg/config"
	"slotswap/pkg/db"
	"slotswap/pkg/db/postgres"
	"slotswap/pkg/model"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const slotColumns = `id, title, start_time, end_time, description, owner_id, status, version, created_at, updated_at`

type postgresSlotRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresSlotRepository(cfg *config.Config) SlotRepository {
	return &postgresSlotRepository{pool: cfg.Client.Postgres}
}

func (r *postgresSlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	_, err := postgres.Conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO `+TableName+` (`+slotColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		slot.ID, slot.Title, slot.StartTime, slot.EndTime, slot.Description,
		slot.OwnerID, string(slot.Status), slot.Version, slot.CreatedAt, slot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create slot: %w", postgres.TranslateError(err))
	}
	return nil
}

func (r *postgresSlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	return r.findOne(ctx, `SELECT `+slotColumns+` FROM `+TableName+` WHERE id = $1`, id)
}

// FindByIDForUpdate locks the row for the rest of the transaction. A row
// already locked by another transaction fails immediately as a conflict.
func (r *postgresSlotRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.Slot, error) {
	return r.findOne(ctx, `SELECT `+slotColumns+` FROM `+TableName+` WHERE id = $1 FOR UPDATE NOWAIT`, id)
}

func (r *postgresSlotRepository) findOne(ctx context.Context, query string, id string) (*model.Slot, error) {
	slot, err := scanSlot(postgres.Conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsNotFound(err) {
			return nil, slotserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find slot: %w", postgres.TranslateError(err))
	}
	return slot, nil
}

func (r *postgresSlotRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Slot, error) {
	found := make(map[string]*model.Slot, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	slots, err := r.findMany(ctx, `SELECT `+slotColumns+` FROM `+TableName+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, slot := range slots {
		found[slot.ID] = slot
	}
	return found, nil
}

func (r *postgresSlotRepository) FindByOwner(ctx context.Context, ownerID string) ([]*model.Slot, error) {
	return r.findMany(ctx,
		`SELECT `+slotColumns+` FROM `+TableName+` WHERE owner_id = $1 ORDER BY start_time, id`,
		ownerID,
	)
}

func (r *postgresSlotRepository) FindSwappable(ctx context.Context, excludeOwnerID string) ([]*model.Slot, error) {
	return r.findMany(ctx,
		`SELECT `+slotColumns+` FROM `+TableName+` WHERE status = $1 AND owner_id <> $2 ORDER BY start_time, id`,
		string(model.SlotSwappable), excludeOwnerID,
	)
}

func (r *postgresSlotRepository) findMany(ctx context.Context, query string, args ...any) ([]*model.Slot, error) {
	rows, err := postgres.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find slots: %w", postgres.TranslateError(err))
	}
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read slots: %w", postgres.TranslateError(err))
	}
	return slots, nil
}

func (r *postgresSlotRepository) Update(ctx context.Context, slot *model.Slot) error {
	now := time.Now().UTC()
	var version int64
	err := postgres.Conn(ctx, r.pool).QueryRow(ctx,
		`UPDATE `+TableName+`
		    SET title = $3, start_time = $4, end_time = $5, description = $6,
		        owner_id = $7, status = $8, version = version + 1, updated_at = $9
		  WHERE id = $1 AND version = $2
		RETURNING version`,
		slot.ID, slot.Version, slot.Title, slot.StartTime, slot.EndTime, slot.Description,
		slot.OwnerID, string(slot.Status), now,
	).Scan(&version)
	if err != nil {
		if postgres.IsNotFound(err) {
			return r.missOrConflict(ctx, slot.ID, slot.Version)
		}
		return fmt.Errorf("failed to update slot: %w", postgres.TranslateError(err))
	}

	slot.Version = version
	slot.UpdatedAt = now
	return nil
}

func (r *postgresSlotRepository) Delete(ctx context.Context, id string, version int64) error {
	tag, err := postgres.Conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM `+TableName+` WHERE id = $1 AND version = $2`, id, version)
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", postgres.TranslateError(err))
	}
	if tag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, id, version)
	}
	return nil
}

func (r *postgresSlotRepository) missOrConflict(ctx context.Context, id string, version int64) error {
	var exists bool
	err := postgres.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+TableName+` WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check slot: %w", postgres.TranslateError(err))
	}
	if !exists {
		return slotserrors.ErrNotFound
	}
	return fmt.Errorf("%w: slot %s changed since version %d", db.ErrConflict, id, version)
}

func scanSlot(row pgx.Row) (*model.Slot, error) {
	var (
		slot   model.Slot
		status string
	)
	err := row.Scan(
		&slot.ID, &slot.Title, &slot.StartTime, &slot.EndTime, &slot.Description,
		&slot.OwnerID, &status, &slot.Version, &slot.CreatedAt, &slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	slot.Status = model.SlotStatus(status)
	slot.StartTime = slot.StartTime.UTC()
	slot.EndTime = slot.EndTime.UTC()
	return &slot, nil
}
