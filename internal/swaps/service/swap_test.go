package service

import (
	"context"
	"errors"
	"slotswap/internal/slots/repository"
	slotservice "slotswap/internal/slots/service"
	slotvalidator "slotswap/internal/slots/validator"
	swaprepository "slotswap/internal/swaps/repository"
	"slotswap/internal/swaps/events"
	"slotswap/internal/swaps/validator"
	"slotswap/pkg/config"
	"slotswap/pkg/db"
	"slotswap/pkg/db/memory"
	apperrors "slotswap/pkg/errors"
	"slotswap/pkg/logger"
	"slotswap/pkg/model"
	"sync"
	"testing"
	"time"
)

type recordingPublisher struct {
	mu        sync.Mutex
	events    []string
	onPublish func(eventType string)
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ *model.SwapRequest) {
	p.mu.Lock()
	p.events = append(p.events, eventType)
	hook := p.onPublish
	p.mu.Unlock()

	if hook != nil {
		hook(eventType)
	}
}

func (p *recordingPublisher) setHook(hook func(eventType string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onPublish = hook
}

func (p *recordingPublisher) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type fixture struct {
	store     *memory.Store
	swaps     SwapService
	slots     slotservice.SlotService
	slotRepo  repository.SlotRepository
	requests  swaprepository.SwapRequestRepository
	locks     swaprepository.SwapLockRepository
	publisher *recordingPublisher
}

type fixtureOptions struct {
	lockWait  time.Duration
	wrapSlots func(slotservice.ProtocolSlots) slotservice.ProtocolSlots
}

func newFixture() *fixture {
	return buildFixture(fixtureOptions{})
}

func buildFixture(opts fixtureOptions) *fixture {
	if opts.lockWait == 0 {
		opts.lockWait = time.Second
	}
	store := memory.NewStore(opts.lockWait)
	cfg := &config.Config{Log: logger.Discard(), SwapLockTTL: 30 * time.Second}
	tx := db.NewTransactionManager(store)

	slotRepo := repository.NewMemorySlotRepository(store)
	requests := swaprepository.NewMemorySwapRequestRepository(store)
	locks := swaprepository.NewMemorySwapLockRepository()
	publisher := &recordingPublisher{}

	protocol := slotservice.NewProtocolSlots(slotRepo)
	if opts.wrapSlots != nil {
		protocol = opts.wrapSlots(protocol)
	}

	return &fixture{
		store: store,
		swaps: NewSwapService(
			requests,
			locks,
			protocol,
			tx,
			validator.NewSwapValidator(cfg.Log),
			publisher,
			cfg,
		),
		slots:     slotservice.NewSlotService(slotRepo, tx, slotvalidator.NewSlotValidator(cfg.Log), cfg),
		slotRepo:  slotRepo,
		requests:  requests,
		locks:     locks,
		publisher: publisher,
	}
}

// slot creates a slot for owner at the given hour and optionally marks it swappable.
func (f *fixture) slot(t *testing.T, owner string, hour int, swappable bool) *model.Slot {
	t.Helper()
	start := time.Date(2026, 3, 2, hour, 0, 0, 0, time.UTC)
	slot, err := f.slots.Create(context.Background(), owner, &model.CreateSlotInput{
		Title:     "slot",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if swappable {
		slot, err = f.slots.SetStatus(context.Background(), slot.ID, owner, &model.SlotStatusUpdate{Status: model.SlotSwappable})
		if err != nil {
			t.Fatalf("SetStatus() error = %v", err)
		}
	}
	return slot
}

func (f *fixture) stored(t *testing.T, id string) *model.Slot {
	t.Helper()
	slot, err := f.slotRepo.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID(%s) error = %v", id, err)
	}
	return slot
}

func proposal(offered, target string) *model.ProposeSwapInput {
	return &model.ProposeSwapInput{OfferedSlotID: offered, TargetSlotID: target}
}

func decision(accept bool) *model.SwapResponse {
	return &model.SwapResponse{Accept: &accept}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if !apperrors.IsCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func assertSlot(t *testing.T, slot *model.Slot, owner string, status model.SlotStatus) {
	t.Helper()
	if slot.OwnerID != owner || slot.Status != status {
		t.Errorf("slot %s = (%s, %s), want (%s, %s)", slot.ID, slot.OwnerID, slot.Status, owner, status)
	}
}

func TestSwap_AcceptScenario(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.slot(t, "x", 9, true)
	b := f.slot(t, "y", 14, true)

	req, err := f.swaps.Propose(ctx, "y", proposal(b.ID, a.ID))
	if err != nil {
		t.Fatalf("Propose() error = %v", err)
	}
	if req.Status != model.SwapPending || req.TargetOwnerID != "x" || req.RequesterID != "y" {
		t.Errorf("unexpected request %+v", req)
	}
	assertSlot(t, f.stored(t, a.ID), "x", model.SlotSwapPending)
	assertSlot(t, f.stored(t, b.ID), "y", model.SlotSwapPending)

	incoming, _ := f.requests.FindByTargetOwner(ctx, "x")
	if len(incoming) != 1 || !incoming[0].IsPending() {
		t.Fatalf("expected one pending request, got %d", len(incoming))
	}

	resolved, err := f.swaps.Respond(ctx, req.ID, "x", decision(true))
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if resolved.Status != model.SwapAccepted || resolved.RespondedAt == nil {
		t.Errorf("unexpected resolution %+v", resolved)
	}
	assertSlot(t, f.stored(t, a.ID), "y", model.SlotBusy)
	assertSlot(t, f.stored(t, b.ID), "x", model.SlotBusy)

	stored, _ := f.requests.FindByID(ctx, req.ID)
	if stored.Status != model.SwapAccepted {
		t.Errorf("stored status = %s, want ACCEPTED", stored.Status)
	}

	want := []string{events.TypeSwapProposed, events.TypeSwapAccepted}
	got := f.publisher.Events()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestSwap_RejectScenario(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.slot(t, "x", 9, true)
	b := f.slot(t, "y", 14, true)

	req, err := f.swaps.Propose(ctx, "y", proposal(b.ID, a.ID))
	if err != nil {
		t.Fatalf("Propose() error = %v", err)
	}

	resolved, err := f.swaps.Respond(ctx, req.ID, "x", decision(false))
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if resolved.Status != model.SwapRejected {
		t.Errorf("Status = %s, want REJECTED", resolved.Status)
	}
	assertSlot(t, f.stored(t, a.ID), "x", model.SlotSwappable)
	assertSlot(t, f.stored(t, b.ID), "y", model.SlotSwappable)

	if _, err := f.swaps.Propose(ctx, "y", proposal(b.ID, a.ID)); err != nil {
		t.Errorf("pair should be proposable again after rejection, got %v", err)
	}
}

func TestSwap_ProposeRejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	xSwappable := f.slot(t, "x", 9, true)
	xBusy := f.slot(t, "x", 10, false)
	xOther := f.slot(t, "x", 11, true)
	ySwappable := f.slot(t, "y", 14, true)
	yBusy := f.slot(t, "y", 15, false)

	tests := []struct {
		name      string
		requester string
		input     *model.ProposeSwapInput
		code      string
	}{
		{"no identity", "", proposal(ySwappable.ID, xSwappable.ID), apperrors.CodeUnauthenticated},
		{"missing ids", "y", proposal("", ""), apperrors.CodeValidation},
		{"offered missing", "y", proposal("nope", xSwappable.ID), apperrors.CodeNotFound},
		{"target missing", "y", proposal(ySwappable.ID, "nope"), apperrors.CodeNotFound},
		{"offered not owned", "y", proposal(xOther.ID, xSwappable.ID), apperrors.CodeForbidden},
		{"own target", "x", proposal(xOther.ID, xSwappable.ID), apperrors.CodeInvalidTarget},
		{"same slot", "x", proposal(xSwappable.ID, xSwappable.ID), apperrors.CodeInvalidTarget},
		{"target busy", "y", proposal(ySwappable.ID, xBusy.ID), apperrors.CodeNotSwappable},
		{"offered busy", "y", proposal(yBusy.ID, xSwappable.ID), apperrors.CodeNotSwappable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.swaps.Propose(ctx, tt.requester, tt.input)
			assertCode(t, err, tt.code)
		})
	}

	if events := f.publisher.Events(); len(events) != 0 {
		t.Errorf("rejected proposals must not publish, got %v", events)
	}
	assertSlot(t, f.stored(t, xSwappable.ID), "x", model.SlotSwappable)
	assertSlot(t, f.stored(t, ySwappable.ID), "y", model.SlotSwappable)
}

func TestSwap_DuplicateAndPendingSlots(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.slot(t, "x", 9, true)
	b := f.slot(t, "y", 14, true)
	c := f.slot(t, "y", 16, true)

	first, err := f.swaps.Propose(ctx, "y", proposal(b.ID, a.ID))
	if err != nil {
		t.Fatalf("Propose() error = %v", err)
	}

	_, err = f.swaps.Propose(ctx, "y", proposal(b.ID, a.ID))
	assertCode(t, err, apperrors.CodeDuplicateRequest)
	if details := apperrors.AsAppError(err).Details; details["request_id"] != first.ID {
		t.Errorf("duplicate should reference %s, got %v", first.ID, details["request_id"])
	}

	_, err = f.swaps.Propose(ctx, "y", proposal(c.ID, a.ID))
	assertCode(t, err, apperrors.CodeNotSwappable)

	_, err = f.slots.SetStatus(ctx, a.ID, "x", &model.SlotStatusUpdate{Status: model.SlotBusy})
	assertCode(t, err, apperrors.CodeInvalidTransition)
	assertCode(t, f.slots.Delete(ctx, b.ID, "y"), apperrors.CodeInvalidTransition)
}

func TestSwap_ConcurrentProposalsForSamePair(t *testing.T) {
	f := newFixture()
	a := f.slot(t, "x", 9, true)
	b := f.slot(t, "y", 14, true)

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	start := make(chan struct{})
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.swaps.Propose(context.Background(), "y", proposal(b.ID, a.ID))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}()
	}
	close(start)
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one success, got %d", successes)
	}
	for _, err := range failures {
		if !apperrors.IsCode(err, apperrors.CodeDuplicateRequest) && !apperrors.IsCode(err, apperrors.CodeConflict) {
			t.Errorf("unexpected failure %v", err)
		}
	}

	pending, _ := f.requests.FindByRequester(context.Background(), "y")
	if len(pending) != 1 {
		t.Errorf("expected one stored request, got %d", len(pending))
	}
}

func TestSwap_ProposeWhileLockHeld(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.slot(t, "x", 9, true)
	b := f.slot(t, "y", 14, true)

	lockID := "swap_lock_" + b.ID + "_" + a.ID
	if err := f.locks.Create(ctx, &model.SwapLock{ID: lockID, ExpiresAt: time.Now().Add(time.Minute)}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err := f.swaps.Propose(ctx, "y", proposal(b.ID, a.ID))
	assertCode(t, err, apperrors.CodeConflict)
	assertSlot(t, f.stored(t, a.ID), "x", model.SlotSwappable)
}

func TestSwap_LockReleasedAfterFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.slot(t, "x", 9, false)
	b := f.slot(t, "y", 14, true)

	_, err := f.swaps.Propose(ctx, "y", proposal(b.ID, a.ID))
	assertCode(t, err, apperrors.CodeNotSwappable)

	if _, err := f.slots.SetStatus(ctx, a.ID, "x", &model.SlotStatusUpdate{Status: model.SlotSwappable}); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if _, err := f.swaps.Propose(ctx, "y", proposal(b.ID, a.ID)); err != nil {
		t.Errorf("lock should have been released, got %v", err)
	}
}

func TestSwap_RespondRejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.slot(t, "x", 9, true)
	b := f.slot(t, "y", 14, true)

	req, err := f.swaps.Propose(ctx, "y", proposal(b.ID, a.ID))
	if err != nil {
		t.Fatalf("Propose() error = %v", err)
	}

	_, err = f.swaps.Respond(ctx, req.ID, "", decision(true))
	assertCode(t, err, apperrors.CodeUnauthenticated)
	_, err = f.swaps.Respond(ctx, req.ID, "x", &model.SwapResponse{})
	assertCode(t, err, apperrors.CodeValidation)
	_, err = f.swaps.Respond(ctx, "nope", "x", decision(true))
	assertCode(t, err, apperrors.CodeNotFound)
	_, err = f.swaps.Respond(ctx, req.ID, "y", decision(true))
	assertCode(t, err, apperrors.CodeForbidden)
	_, err = f.swaps.Respond(ctx, req.ID, "z", decision(true))
	assertCode(t, err, apperrors.CodeForbidden)

	if _, err := f.swaps.Respond(ctx, req.ID, "x", decision(false)); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	_, err = f.swaps.Respond(ctx, req.ID, "x", decision(true))
	assertCode(t, err, apperrors.CodeAlreadyResolved)
	assertSlot(t, f.stored(t, a.ID), "x", model.SlotSwappable)
}

func TestSwap_RespondWhenSlotGone(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.slot(t, "x", 9, true)
	b := f.slot(t, "y", 14, true)

	req, err := f.swaps.Propose(ctx, "y", proposal(b.ID, a.ID))
	if err != nil {
		t.Fatalf("Propose() error = %v", err)
	}

	gone := f.stored(t, b.ID)
	if err := f.slotRepo.Delete(ctx, gone.ID, gone.Version); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err = f.swaps.Respond(ctx, req.ID, "x", decision(true))
	assertCode(t, err, apperrors.CodeSlotsGone)

	assertSlot(t, f.stored(t, a.ID), "x", model.SlotSwapPending)
	stored, _ := f.requests.FindByID(ctx, req.ID)
	if !stored.IsPending() {
		t.Errorf("request must stay pending, got %s", stored.Status)
	}
}

func TestSwap_GetRequest(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.slot(t, "x", 9, true)
	b := f.slot(t, "y", 14, true)

	req, err := f.swaps.Propose(ctx, "y", proposal(b.ID, a.ID))
	if err != nil {
		t.Fatalf("Propose() error = %v", err)
	}

	for _, caller := range []string{"x", "y"} {
		got, err := f.swaps.GetRequest(ctx, req.ID, caller)
		if err != nil || got.ID != req.ID {
			t.Errorf("GetRequest(%s) = %v, %v", caller, got, err)
		}
	}

	_, err = f.swaps.GetRequest(ctx, req.ID, "z")
	assertCode(t, err, apperrors.CodeForbidden)
	_, err = f.swaps.GetRequest(ctx, "nope", "x")
	assertCode(t, err, apperrors.CodeNotFound)
	_, err = f.swaps.GetRequest(ctx, req.ID, "")
	assertCode(t, err, apperrors.CodeUnauthenticated)
}

func TestSwap_LockReleasedWhileStoreBusy(t *testing.T) {
	f := buildFixture(fixtureOptions{lockWait: 50 * time.Millisecond})
	ctx := context.Background()
	a := f.slot(t, "x", 9, true)
	b := f.slot(t, "y", 14, true)

	// Another writer takes the store right after the proposal commits and
	// keeps it past the lock wait, so the pair lock release runs while the
	// store is busy.
	released := make(chan struct{})
	f.publisher.setHook(func(eventType string) {
		if eventType != events.TypeSwapProposed {
			return
		}
		tx, err := f.store.Begin(ctx)
		if err != nil {
			t.Errorf("Begin() error = %v", err)
			close(released)
			return
		}
		go func() {
			defer close(released)
			time.Sleep(150 * time.Millisecond)
			_ = tx.Abort(ctx)
		}()
	})

	req, err := f.swaps.Propose(ctx, "y", proposal(b.ID, a.ID))
	if err != nil {
		t.Fatalf("Propose() error = %v", err)
	}
	<-released
	f.publisher.setHook(nil)

	if _, err := f.swaps.Respond(ctx, req.ID, "x", decision(false)); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if _, err := f.swaps.Propose(ctx, "y", proposal(b.ID, a.ID)); err != nil {
		t.Fatalf("pair lock should have been released, got %v", err)
	}
}

var errInjected = errors.New("injected storage failure")

// failingSlots fails the nth call of one protocol mutation and delegates
// everything else.
type failingSlots struct {
	slotservice.ProtocolSlots

	mu             sync.Mutex
	failPendingAt  int
	failTransferAt int
	pendingCalls   int
	transferCalls  int
}

func (s *failingSlots) ForcePending(ctx context.Context, slotID string) (*model.Slot, error) {
	s.mu.Lock()
	s.pendingCalls++
	fail := s.pendingCalls == s.failPendingAt
	s.mu.Unlock()
	if fail {
		return nil, errInjected
	}
	return s.ProtocolSlots.ForcePending(ctx, slotID)
}

func (s *failingSlots) TransferOwner(ctx context.Context, slotID, newOwnerID string, status model.SlotStatus) (*model.Slot, error) {
	s.mu.Lock()
	s.transferCalls++
	fail := s.transferCalls == s.failTransferAt
	s.mu.Unlock()
	if fail {
		return nil, errInjected
	}
	return s.ProtocolSlots.TransferOwner(ctx, slotID, newOwnerID, status)
}

func withFailingSlots(failing *failingSlots) fixtureOptions {
	return fixtureOptions{
		wrapSlots: func(inner slotservice.ProtocolSlots) slotservice.ProtocolSlots {
			failing.ProtocolSlots = inner
			return failing
		},
	}
}

func TestSwap_ProposeRollsBackOnPartialFailure(t *testing.T) {
	failing := &failingSlots{failPendingAt: 2}
	f := buildFixture(withFailingSlots(failing))
	ctx := context.Background()
	a := f.slot(t, "x", 9, true)
	b := f.slot(t, "y", 14, true)

	_, err := f.swaps.Propose(ctx, "y", proposal(b.ID, a.ID))
	assertCode(t, err, apperrors.CodeInternal)

	assertSlot(t, f.stored(t, a.ID), "x", model.SlotSwappable)
	assertSlot(t, f.stored(t, b.ID), "y", model.SlotSwappable)
	if pending, _ := f.requests.FindByRequester(ctx, "y"); len(pending) != 0 {
		t.Errorf("no request should be stored, got %d", len(pending))
	}
	if got := f.publisher.Events(); len(got) != 0 {
		t.Errorf("nothing should be published, got %v", got)
	}

	if _, err := f.swaps.Propose(ctx, "y", proposal(b.ID, a.ID)); err != nil {
		t.Fatalf("retry after rollback should succeed, got %v", err)
	}
}

func TestSwap_AcceptRollsBackOnPartialFailure(t *testing.T) {
	failing := &failingSlots{failTransferAt: 2}
	f := buildFixture(withFailingSlots(failing))
	ctx := context.Background()
	a := f.slot(t, "x", 9, true)
	b := f.slot(t, "y", 14, true)

	req, err := f.swaps.Propose(ctx, "y", proposal(b.ID, a.ID))
	if err != nil {
		t.Fatalf("Propose() error = %v", err)
	}

	_, err = f.swaps.Respond(ctx, req.ID, "x", decision(true))
	assertCode(t, err, apperrors.CodeInternal)

	assertSlot(t, f.stored(t, a.ID), "x", model.SlotSwapPending)
	assertSlot(t, f.stored(t, b.ID), "y", model.SlotSwapPending)
	stored, _ := f.requests.FindByID(ctx, req.ID)
	if !stored.IsPending() || stored.RespondedAt != nil {
		t.Errorf("request must stay pending, got %s", stored.Status)
	}

	accepted, err := f.swaps.Respond(ctx, req.ID, "x", decision(true))
	if err != nil {
		t.Fatalf("retry after rollback should succeed, got %v", err)
	}
	if accepted.Status != model.SwapAccepted {
		t.Fatalf("expected ACCEPTED, got %s", accepted.Status)
	}
	assertSlot(t, f.stored(t, a.ID), "y", model.SlotBusy)
	assertSlot(t, f.stored(t, b.ID), "x", model.SlotBusy)
}

func TestSwap_ConcurrentResponses(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.slot(t, "x", 9, true)
	b := f.slot(t, "y", 14, true)

	req, err := f.swaps.Propose(ctx, "y", proposal(b.ID, a.ID))
	if err != nil {
		t.Fatalf("Propose() error = %v", err)
	}

	var (
		wg      sync.WaitGroup
		results [2]*model.SwapRequest
		errs    [2]error
	)
	start := make(chan struct{})
	for i, accept := range []bool{true, false} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results[i], errs[i] = f.swaps.Respond(ctx, req.ID, "x", decision(accept))
		}()
	}
	close(start)
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			if winner != -1 {
				t.Fatal("both responses succeeded")
			}
			winner = i
			continue
		}
		if !apperrors.IsCode(err, apperrors.CodeAlreadyResolved) && !apperrors.IsCode(err, apperrors.CodeConflict) {
			t.Errorf("unexpected failure %v", err)
		}
	}
	if winner == -1 {
		t.Fatalf("expected one response to succeed, got %v", errs)
	}

	stored, _ := f.requests.FindByID(ctx, req.ID)
	if stored.Status != results[winner].Status {
		t.Fatalf("stored status %s, winner returned %s", stored.Status, results[winner].Status)
	}
	if stored.Status == model.SwapAccepted {
		assertSlot(t, f.stored(t, a.ID), "y", model.SlotBusy)
		assertSlot(t, f.stored(t, b.ID), "x", model.SlotBusy)
	} else {
		assertSlot(t, f.stored(t, a.ID), "x", model.SlotSwappable)
		assertSlot(t, f.stored(t, b.ID), "y", model.SlotSwappable)
	}
}

func TestSwap_AcceptRacingOwnerMutations(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.slot(t, "x", 9, true)
	b := f.slot(t, "y", 14, true)

	req, err := f.swaps.Propose(ctx, "y", proposal(b.ID, a.ID))
	if err != nil {
		t.Fatalf("Propose() error = %v", err)
	}

	var (
		wg                               sync.WaitGroup
		respondErr, deleteErr, statusErr error
	)
	start := make(chan struct{})
	wg.Add(3)
	go func() {
		defer wg.Done()
		<-start
		_, respondErr = f.swaps.Respond(ctx, req.ID, "x", decision(true))
	}()
	go func() {
		defer wg.Done()
		<-start
		deleteErr = f.slots.Delete(ctx, a.ID, "x")
	}()
	go func() {
		defer wg.Done()
		<-start
		_, statusErr = f.slots.SetStatus(ctx, b.ID, "y", &model.SlotStatusUpdate{Status: model.SlotBusy})
	}()
	close(start)
	wg.Wait()

	if respondErr != nil {
		t.Fatalf("Respond() error = %v", respondErr)
	}
	// Before the swap both slots are pending, after it each belongs to the
	// other user, so the owner mutations fail either way.
	for name, err := range map[string]error{"Delete": deleteErr, "SetStatus": statusErr} {
		if !apperrors.IsCode(err, apperrors.CodeInvalidTransition) &&
			!apperrors.IsCode(err, apperrors.CodeForbidden) &&
			!apperrors.IsCode(err, apperrors.CodeConflict) {
			t.Errorf("%s racing accept: unexpected result %v", name, err)
		}
	}

	assertSlot(t, f.stored(t, a.ID), "y", model.SlotBusy)
	assertSlot(t, f.stored(t, b.ID), "x", model.SlotBusy)
}
