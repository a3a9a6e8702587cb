package repository

import (
	"context"
	"errors"
	swapserrors "slotswap/internal/swaps/errors"
	"slotswap/pkg/db"
	"slotswap/pkg/db/memory"
	"slotswap/pkg/model"
	"testing"
	"time"
)

func pendingRequest(id, offered, target string, created time.Time) *model.SwapRequest {
	return &model.SwapRequest{
		ID:            id,
		RequesterID:   "bob",
		TargetOwnerID: "alice",
		OfferedSlotID: offered,
		TargetSlotID:  target,
		Status:        model.SwapPending,
		Version:       1,
		CreatedAt:     created,
	}
}

func TestMemorySwapRequestRepository_DuplicatePendingPair(t *testing.T) {
	repo := NewMemorySwapRequestRepository(memory.NewStore(time.Second))
	ctx := context.Background()
	now := time.Now()

	if err := repo.Create(ctx, pendingRequest("r1", "b", "a", now)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, pendingRequest("r2", "b", "a", now)); !errors.Is(err, swapserrors.ErrDuplicatePending) {
		t.Fatalf("expected ErrDuplicatePending, got %v", err)
	}
	if err := repo.Create(ctx, pendingRequest("r3", "a", "b", now)); err != nil {
		t.Errorf("reverse pair is a different pair, got %v", err)
	}

	r1, _ := repo.FindByID(ctx, "r1")
	r1.Status = model.SwapRejected
	if err := repo.Update(ctx, r1); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := repo.Create(ctx, pendingRequest("r4", "b", "a", now)); err != nil {
		t.Errorf("pair is free again after resolution, got %v", err)
	}
}

func TestMemorySwapRequestRepository_FindPendingByPair(t *testing.T) {
	repo := NewMemorySwapRequestRepository(memory.NewStore(time.Second))
	ctx := context.Background()

	if _, err := repo.FindPendingByPair(ctx, "b", "a"); !errors.Is(err, swapserrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	_ = repo.Create(ctx, pendingRequest("r1", "b", "a", time.Now()))

	got, err := repo.FindPendingByPair(ctx, "b", "a")
	if err != nil || got.ID != "r1" {
		t.Errorf("FindPendingByPair() = %v, %v", got, err)
	}
}

func TestMemorySwapRequestRepository_ListsNewestFirst(t *testing.T) {
	repo := NewMemorySwapRequestRepository(memory.NewStore(time.Second))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	_ = repo.Create(ctx, pendingRequest("old", "s1", "t1", base))
	_ = repo.Create(ctx, pendingRequest("new", "s2", "t2", base.Add(time.Minute)))
	other := pendingRequest("other", "s3", "t3", base)
	other.TargetOwnerID = "carol"
	_ = repo.Create(ctx, other)

	incoming, err := repo.FindByTargetOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByTargetOwner() error = %v", err)
	}
	if len(incoming) != 2 || incoming[0].ID != "new" || incoming[1].ID != "old" {
		t.Errorf("unexpected order: %v", ids(incoming))
	}

	outgoing, _ := repo.FindByRequester(ctx, "bob")
	if len(outgoing) != 3 {
		t.Errorf("expected 3 outgoing, got %d", len(outgoing))
	}
}

func TestMemorySwapRequestRepository_UpdateStaleVersion(t *testing.T) {
	repo := NewMemorySwapRequestRepository(memory.NewStore(time.Second))
	ctx := context.Background()
	_ = repo.Create(ctx, pendingRequest("r1", "b", "a", time.Now()))

	stale, _ := repo.FindByID(ctx, "r1")
	fresh, _ := repo.FindByID(ctx, "r1")
	fresh.Status = model.SwapAccepted
	if err := repo.Update(ctx, fresh); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	stale.Status = model.SwapRejected
	if err := repo.Update(ctx, stale); !errors.Is(err, db.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestMemorySwapLockRepository(t *testing.T) {
	repo := NewMemorySwapLockRepository()
	ctx := context.Background()

	lock := &model.SwapLock{ID: "pair", ExpiresAt: time.Now().Add(time.Minute)}
	if err := repo.Create(ctx, lock); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if lock.CreatedAt.IsZero() {
		t.Fatal("Create() should stamp CreatedAt")
	}
	if err := repo.Create(ctx, &model.SwapLock{ID: "pair", ExpiresAt: time.Now().Add(time.Minute)}); !errors.Is(err, swapserrors.ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}
	if err := repo.Delete(ctx, lock); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Create(ctx, &model.SwapLock{ID: "pair", ExpiresAt: time.Now().Add(time.Minute)}); err != nil {
		t.Errorf("released lock should be free, got %v", err)
	}
}

func TestMemorySwapLockRepository_ExpiredLockIsReplaced(t *testing.T) {
	repo := NewMemorySwapLockRepository()
	ctx := context.Background()

	_ = repo.Create(ctx, &model.SwapLock{ID: "pair", ExpiresAt: time.Now().Add(-time.Second)})
	if err := repo.Create(ctx, &model.SwapLock{ID: "pair", ExpiresAt: time.Now().Add(time.Minute)}); err != nil {
		t.Errorf("expired lock should be taken over, got %v", err)
	}
}

func TestMemorySwapLockRepository_StaleHolderKeepsNewLock(t *testing.T) {
	repo := NewMemorySwapLockRepository()
	ctx := context.Background()

	stale := &model.SwapLock{ID: "pair", ExpiresAt: time.Now().Add(-time.Second)}
	if err := repo.Create(ctx, stale); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	time.Sleep(2 * time.Millisecond)

	current := &model.SwapLock{ID: "pair", ExpiresAt: time.Now().Add(time.Minute)}
	if err := repo.Create(ctx, current); err != nil {
		t.Fatalf("expired lock should be taken over, got %v", err)
	}

	if err := repo.Delete(ctx, stale); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Create(ctx, &model.SwapLock{ID: "pair", ExpiresAt: time.Now().Add(time.Minute)}); !errors.Is(err, swapserrors.ErrLockHeld) {
		t.Errorf("stale release must not free the current lock, got %v", err)
	}
}

func TestMemorySwapLockRepository_IgnoresBusyStore(t *testing.T) {
	store := memory.NewStore(10 * time.Millisecond)
	repo := NewMemorySwapLockRepository()
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	defer func() { _ = tx.Abort(ctx) }()

	lock := &model.SwapLock{ID: "pair", ExpiresAt: time.Now().Add(time.Minute)}
	if err := repo.Create(ctx, lock); err != nil {
		t.Fatalf("Create() with a busy store error = %v", err)
	}
	if err := repo.Delete(ctx, lock); err != nil {
		t.Fatalf("Delete() with a busy store error = %v", err)
	}
}

func ids(reqs []*model.SwapRequest) []string {
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.ID
	}
	return out
}
