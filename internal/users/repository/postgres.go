package repository

import (
	"context"
	"fmt"
	userserrors "slotswap/internal/users/errors"
	"slotswap/pkg/config"
	"slotswap/pkg/db/postgres"
	"slotswap/pkg/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresUserRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepository(cfg *config.Config) UserRepository {
	return &postgresUserRepository{pool: cfg.Client.Postgres}
}

func (r *postgresUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := postgres.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name, email FROM `+TableName+` WHERE id = $1`, id,
	).Scan(&user.ID, &user.Name, &user.Email)
	if err != nil {
		if postgres.IsNotFound(err) {
			return nil, userserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (r *postgresUserRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.User, error) {
	found := make(map[string]*model.User, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	rows, err := postgres.Conn(ctx, r.pool).Query(ctx,
		`SELECT id, name, email FROM `+TableName+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var user model.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		found[user.ID] = &user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}
	return found, nil
}

func (r *postgresUserRepository) Upsert(ctx context.Context, user *model.User) error {
	_, err := postgres.Conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO `+TableName+` (id, name, email) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email`,
		user.ID, user.Name, user.Email,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}
