package repository

import (
	"context"
	userserrors "slotswap/internal/users/errors"
	"slotswap/pkg/db/memory"
	"slotswap/pkg/model"
)

type memoryUserRepository struct {
	store *memory.Store
	users *memory.Table[model.User]
}

func NewMemoryUserRepository(store *memory.Store) UserRepository {
	return &memoryUserRepository{
		store: store,
		users: memory.NewTable[model.User](store, CollectionName),
	}
}

func (r *memoryUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, ok := r.users.Get(ctx, id)
	if !ok {
		return nil, userserrors.ErrNotFound
	}
	return &user, nil
}

func (r *memoryUserRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.User, error) {
	found := make(map[string]*model.User, len(ids))
	for _, id := range ids {
		if user, ok := r.users.Get(ctx, id); ok {
			found[id] = &user
		}
	}
	return found, nil
}

func (r *memoryUserRepository) Upsert(ctx context.Context, user *model.User) error {
	return r.store.Within(ctx, func(ctx context.Context) error {
		return r.users.Put(ctx, user.ID, *user)
	})
}
