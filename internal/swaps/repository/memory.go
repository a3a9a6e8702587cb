package repository

import (
	"context"
	"fmt"
	swapserrors "slotswap/internal/swaps/errors"
	"slotswap/pkg/db"
	"slotswap/pkg/db/memory"
	"slotswap/pkg/model"
	"sync"
)

type memorySwapRequestRepository struct {
	store    *memory.Store
	requests *memory.Table[model.SwapRequest]
}

func NewMemorySwapRequestRepository(store *memory.Store) SwapRequestRepository {
	return &memorySwapRequestRepository{
		store:    store,
		requests: memory.NewTable[model.SwapRequest](store, RequestCollectionName),
	}
}

func (r *memorySwapRequestRepository) Create(ctx context.Context, req *model.SwapRequest) error {
	return r.store.Within(ctx, func(ctx context.Context) error {
		if _, exists := r.requests.Get(ctx, req.ID); exists {
			return fmt.Errorf("swap request %s already exists", req.ID)
		}
		if req.IsPending() {
			if _, err := r.FindPendingByPair(ctx, req.OfferedSlotID, req.TargetSlotID); err == nil {
				return swapserrors.ErrDuplicatePending
			}
		}
		return r.requests.Put(ctx, req.ID, *req)
	})
}

func (r *memorySwapRequestRepository) FindByID(ctx context.Context, id string) (*model.SwapRequest, error) {
	req, ok := r.requests.Get(ctx, id)
	if !ok {
		return nil, swapserrors.ErrNotFound
	}
	return &req, nil
}

func (r *memorySwapRequestRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.SwapRequest, error) {
	return r.FindByID(ctx, id)
}

func (r *memorySwapRequestRepository) FindPendingByPair(ctx context.Context, offeredSlotID, targetSlotID string) (*model.SwapRequest, error) {
	found := r.list(ctx, func(req model.SwapRequest) bool {
		return req.IsPending() && req.OfferedSlotID == offeredSlotID && req.TargetSlotID == targetSlotID
	})
	if len(found) == 0 {
		return nil, swapserrors.ErrNotFound
	}
	return found[0], nil
}

func (r *memorySwapRequestRepository) FindByTargetOwner(ctx context.Context, userID string) ([]*model.SwapRequest, error) {
	return r.list(ctx, func(req model.SwapRequest) bool { return req.TargetOwnerID == userID }), nil
}

func (r *memorySwapRequestRepository) FindByRequester(ctx context.Context, userID string) ([]*model.SwapRequest, error) {
	return r.list(ctx, func(req model.SwapRequest) bool { return req.RequesterID == userID }), nil
}

func (r *memorySwapRequestRepository) list(ctx context.Context, keep func(model.SwapRequest) bool) []*model.SwapRequest {
	rows := r.requests.List(ctx, keep)
	reqs := make([]*model.SwapRequest, len(rows))
	for i := range rows {
		reqs[i] = &rows[i]
	}
	SortRequests(reqs)
	return reqs
}

func (r *memorySwapRequestRepository) Update(ctx context.Context, req *model.SwapRequest) error {
	return r.store.Within(ctx, func(ctx context.Context) error {
		current, ok := r.requests.Get(ctx, req.ID)
		if !ok {
			return swapserrors.ErrNotFound
		}
		if current.Version != req.Version {
			return fmt.Errorf("%w: swap request %s version %d, have %d", db.ErrConflict, req.ID, current.Version, req.Version)
		}

		next := *req
		next.Version++
		if err := r.requests.Put(ctx, next.ID, next); err != nil {
			return err
		}
		*req = next
		return nil
	})
}

// memorySwapLockRepository keeps locks in a mutex-guarded map outside the
// store, so taking or releasing a lock never waits on the store's writer.
type memorySwapLockRepository struct {
	mu    sync.Mutex
	locks map[string]model.SwapLock
}

func NewMemorySwapLockRepository() SwapLockRepository {
	return &memorySwapLockRepository{locks: make(map[string]model.SwapLock)}
}

func (r *memorySwapLockRepository) Create(_ context.Context, lock *model.SwapLock) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := lockStamp()
	if held, ok := r.locks[lock.ID]; ok && !lockExpired(held, now) {
		return swapserrors.ErrLockHeld
	}
	lock.CreatedAt = now
	r.locks[lock.ID] = *lock
	return nil
}

func (r *memorySwapLockRepository) Delete(_ context.Context, lock *model.SwapLock) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if held, ok := r.locks[lock.ID]; ok && held.CreatedAt.Equal(lock.CreatedAt) {
		delete(r.locks, lock.ID)
	}
	return nil
}
