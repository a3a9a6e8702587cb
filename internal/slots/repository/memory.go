package repository

import (
	"context"
	"fmt"
	slotserrors "slotswap/internal/slots/errors"
	"slotswap/pkg/db"
	"slotswap/pkg/db/memory"
	"slotswap/pkg/model"
	"time"
)

type memorySlotRepository struct {
	store *memory.Store
	slots *memory.Table[model.Slot]
}

func NewMemorySlotRepository(store *memory.Store) SlotRepository {
	return &memorySlotRepository{
		store: store,
		slots: memory.NewTable[model.Slot](store, CollectionName),
	}
}

func (r *memorySlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	return r.store.Within(ctx, func(ctx context.Context) error {
		if _, exists := r.slots.Get(ctx, slot.ID); exists {
			return fmt.Errorf("slot %s already exists", slot.ID)
		}
		return r.slots.Put(ctx, slot.ID, *slot)
	})
}

func (r *memorySlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	slot, ok := r.slots.Get(ctx, id)
	if !ok {
		return nil, slotserrors.ErrNotFound
	}
	return &slot, nil
}

func (r *memorySlotRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.Slot, error) {
	return r.FindByID(ctx, id)
}

func (r *memorySlotRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Slot, error) {
	found := make(map[string]*model.Slot, len(ids))
	for _, id := range ids {
		if slot, ok := r.slots.Get(ctx, id); ok {
			found[id] = &slot
		}
	}
	return found, nil
}

func (r *memorySlotRepository) FindByOwner(ctx context.Context, ownerID string) ([]*model.Slot, error) {
	return r.list(ctx, func(s model.Slot) bool { return s.OwnerID == ownerID }), nil
}

func (r *memorySlotRepository) FindSwappable(ctx context.Context, excludeOwnerID string) ([]*model.Slot, error) {
	return r.list(ctx, func(s model.Slot) bool {
		return s.Status == model.SlotSwappable && s.OwnerID != excludeOwnerID
	}), nil
}

func (r *memorySlotRepository) list(ctx context.Context, keep func(model.Slot) bool) []*model.Slot {
	rows := r.slots.List(ctx, keep)
	slots := make([]*model.Slot, len(rows))
	for i := range rows {
		slots[i] = &rows[i]
	}
	SortSlots(slots)
	return slots
}

func (r *memorySlotRepository) Update(ctx context.Context, slot *model.Slot) error {
	return r.store.Within(ctx, func(ctx context.Context) error {
		current, ok := r.slots.Get(ctx, slot.ID)
		if !ok {
			return slotserrors.ErrNotFound
		}
		if current.Version != slot.Version {
			return fmt.Errorf("%w: slot %s version %d, have %d", db.ErrConflict, slot.ID, current.Version, slot.Version)
		}

		next := *slot
		next.Version++
		next.UpdatedAt = time.Now().UTC()
		if err := r.slots.Put(ctx, next.ID, next); err != nil {
			return err
		}
		*slot = next
		return nil
	})
}

func (r *memorySlotRepository) Delete(ctx context.Context, id string, version int64) error {
	return r.store.Within(ctx, func(ctx context.Context) error {
		current, ok := r.slots.Get(ctx, id)
		if !ok {
			return slotserrors.ErrNotFound
		}
		if current.Version != version {
			return fmt.Errorf("%w: slot %s version %d, have %d", db.ErrConflict, id, current.Version, version)
		}
		return r.slots.Delete(ctx, id)
	})
}
