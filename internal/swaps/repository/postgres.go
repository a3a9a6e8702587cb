package repository

import (
	"context"
	"fmt"
	swapserrors "slotswap/internal/swaps/errors"
	"slotswap/pkg/config"
	"slotswap/pkg/db"
	"slotswap/pkg/db/postgres"
	"slotswap/pkg/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const requestColumns = `id, requester_id, target_owner_id, offered_slot_id, target_slot_id, message, status, version, created_at, responded_at`

type postgresSwapRequestRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresSwapRequestRepository(cfg *config.Config) SwapRequestRepository {
	return &postgresSwapRequestRepository{pool: cfg.Client.Postgres}
}

func (r *postgresSwapRequestRepository) Create(ctx context.Context, req *model.SwapRequest) error {
	_, err := postgres.Conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO `+RequestTableName+` (`+requestColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		req.ID, req.RequesterID, req.TargetOwnerID, req.OfferedSlotID, req.TargetSlotID,
		req.Message, string(req.Status), req.Version, req.CreatedAt, req.RespondedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return swapserrors.ErrDuplicatePending
		}
		return fmt.Errorf("failed to create swap request: %w", postgres.TranslateError(err))
	}
	return nil
}

func (r *postgresSwapRequestRepository) FindByID(ctx context.Context, id string) (*model.SwapRequest, error) {
	return r.findOne(ctx, `SELECT `+requestColumns+` FROM `+RequestTableName+` WHERE id = $1`, id)
}

func (r *postgresSwapRequestRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.SwapRequest, error) {
	return r.findOne(ctx, `SELECT `+requestColumns+` FROM `+RequestTableName+` WHERE id = $1 FOR UPDATE NOWAIT`, id)
}

func (r *postgresSwapRequestRepository) FindPendingByPair(ctx context.Context, offeredSlotID, targetSlotID string) (*model.SwapRequest, error) {
	return r.findOne(ctx,
		`SELECT `+requestColumns+` FROM `+RequestTableName+`
		  WHERE offered_slot_id = $1 AND target_slot_id = $2 AND status = $3`,
		offeredSlotID, targetSlotID, string(model.SwapPending),
	)
}

func (r *postgresSwapRequestRepository) findOne(ctx context.Context, query string, args ...any) (*model.SwapRequest, error) {
	req, err := scanRequest(postgres.Conn(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if postgres.IsNotFound(err) {
			return nil, swapserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find swap request: %w", postgres.TranslateError(err))
	}
	return req, nil
}

func (r *postgresSwapRequestRepository) FindByTargetOwner(ctx context.Context, userID string) ([]*model.SwapRequest, error) {
	return r.findMany(ctx,
		`SELECT `+requestColumns+` FROM `+RequestTableName+` WHERE target_owner_id = $1 ORDER BY created_at DESC, id`,
		userID,
	)
}

func (r *postgresSwapRequestRepository) FindByRequester(ctx context.Context, userID string) ([]*model.SwapRequest, error) {
	return r.findMany(ctx,
		`SELECT `+requestColumns+` FROM `+RequestTableName+` WHERE requester_id = $1 ORDER BY created_at DESC, id`,
		userID,
	)
}

func (r *postgresSwapRequestRepository) findMany(ctx context.Context, query string, args ...any) ([]*model.SwapRequest, error) {
	rows, err := postgres.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find swap requests: %w", postgres.TranslateError(err))
	}
	defer rows.Close()

	var reqs []*model.SwapRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan swap request: %w", err)
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read swap requests: %w", postgres.TranslateError(err))
	}
	return reqs, nil
}

func (r *postgresSwapRequestRepository) Update(ctx context.Context, req *model.SwapRequest) error {
	var version int64
	err := postgres.Conn(ctx, r.pool).QueryRow(ctx,
		`UPDATE `+RequestTableName+`
		    SET status = $3, responded_at = $4, version = version + 1
		  WHERE id = $1 AND version = $2
		RETURNING version`,
		req.ID, req.Version, string(req.Status), req.RespondedAt,
	).Scan(&version)
	if err != nil {
		if !postgres.IsNotFound(err) {
			return fmt.Errorf("failed to update swap request: %w", postgres.TranslateError(err))
		}

		var exists bool
		if err := postgres.Conn(ctx, r.pool).QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM `+RequestTableName+` WHERE id = $1)`, req.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check swap request: %w", postgres.TranslateError(err))
		}
		if !exists {
			return swapserrors.ErrNotFound
		}
		return fmt.Errorf("%w: swap request %s changed since version %d", db.ErrConflict, req.ID, req.Version)
	}

	req.Version = version
	return nil
}

func scanRequest(row pgx.Row) (*model.SwapRequest, error) {
	var (
		req    model.SwapRequest
		status string
	)
	err := row.Scan(
		&req.ID, &req.RequesterID, &req.TargetOwnerID, &req.OfferedSlotID, &req.TargetSlotID,
		&req.Message, &status, &req.Version, &req.CreatedAt, &req.RespondedAt,
	)
	if err != nil {
		return nil, err
	}
	req.Status = model.SwapStatus(status)
	return &req, nil
}

type postgresSwapLockRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresSwapLockRepository(cfg *config.Config) SwapLockRepository {
	return &postgresSwapLockRepository{pool: cfg.Client.Postgres}
}

// Create takes the lock with a single upsert that only overwrites an expired row.
func (r *postgresSwapLockRepository) Create(ctx context.Context, lock *model.SwapLock) error {
	lock.CreatedAt = lockStamp()
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO `+LockTableName+` (id, expires_at, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at
		 WHERE `+LockTableName+`.expires_at <= EXCLUDED.created_at`,
		lock.ID, lock.ExpiresAt, lock.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create swap lock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return swapserrors.ErrLockHeld
	}
	return nil
}

func (r *postgresSwapLockRepository) Delete(ctx context.Context, lock *model.SwapLock) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM `+LockTableName+` WHERE id = $1 AND created_at = $2`, lock.ID, lock.CreatedAt)
	return err
}
