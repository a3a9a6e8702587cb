package repository

import (
	"context"
	"slotswap/pkg/model"
)

const (
	CollectionName = "Users"
	TableName      = "users"
)

// UserRepository reads the user directory. Users are registered elsewhere;
// Upsert exists for seeding and tests.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.User, error)
	Upsert(ctx context.Context, user *model.User) error
}
