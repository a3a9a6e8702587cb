package repository

import (
	"cmp"
	"context"
	"slices"
	"slotswap/pkg/model"
	"time"
)

const (
	RequestCollectionName = "Swap_requests"
	RequestTableName      = "swap_requests"
	LockCollectionName    = "Swap_locks"
	LockTableName         = "swap_locks"
)

// SwapRequestRepository stores swap requests. Create fails with
// swapserrors.ErrDuplicatePending when a pending request for the same pair
// exists; Update is compare-and-swap on Version.
type SwapRequestRepository interface {
	Create(ctx context.Context, req *model.SwapRequest) error
	FindByID(ctx context.Context, id string) (*model.SwapRequest, error)
	FindByIDForUpdate(ctx context.Context, id string) (*model.SwapRequest, error)
	FindPendingByPair(ctx context.Context, offeredSlotID, targetSlotID string) (*model.SwapRequest, error)
	FindByTargetOwner(ctx context.Context, userID string) ([]*model.SwapRequest, error)
	FindByRequester(ctx context.Context, userID string) ([]*model.SwapRequest, error)
	Update(ctx context.Context, req *model.SwapRequest) error
}

// SwapLockRepository manages short-lived advisory locks. Create returns
// swapserrors.ErrLockHeld while an unexpired lock with the same id exists,
// and stamps CreatedAt on success. Delete removes the lock only while it is
// still the one Create stamped, so a holder that outlived its TTL cannot
// release a newer holder's lock.
type SwapLockRepository interface {
	Create(ctx context.Context, lock *model.SwapLock) error
	Delete(ctx context.Context, lock *model.SwapLock) error
}

// SortRequests orders newest first, ties broken by id.
func SortRequests(reqs []*model.SwapRequest) {
	slices.SortFunc(reqs, func(a, b *model.SwapRequest) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// lockStamp is the creation time stored with a lock. Millisecond precision
// survives both BSON dates and timestamptz unchanged.
func lockStamp() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func lockExpired(lock model.SwapLock, now time.Time) bool {
	return !lock.ExpiresAt.After(now)
}
