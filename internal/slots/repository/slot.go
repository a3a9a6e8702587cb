package repository

import (
	"cmp"
	"context"
	"slices"
	"slotswap/pkg/model"
)

const (
	CollectionName = "Slots"
	TableName      = "slots"
)

// SlotRepository is the storage contract for slots. Update and Delete are
// compare-and-swap on Version: a stale version yields db.ErrConflict and a
// missing row yields slotserrors.ErrNotFound.
type SlotRepository interface {
	Create(ctx context.Context, slot *model.Slot) error
	FindByID(ctx context.Context, id string) (*model.Slot, error)
	// FindByIDForUpdate reads a slot that the current unit of work intends
	// to modify. Backends with row locks take the lock without waiting.
	FindByIDForUpdate(ctx context.Context, id string) (*model.Slot, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.Slot, error)
	FindByOwner(ctx context.Context, ownerID string) ([]*model.Slot, error)
	FindSwappable(ctx context.Context, excludeOwnerID string) ([]*model.Slot, error)
	Update(ctx context.Context, slot *model.Slot) error
	Delete(ctx context.Context, id string, version int64) error
}

// SortSlots orders by start time, then id, so listings are deterministic.
func SortSlots(slots []*model.Slot) {
	slices.SortFunc(slots, func(a, b *model.Slot) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
