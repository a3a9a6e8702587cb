package service

import (
	"context"
	"errors"
	"fmt"
	slotserrors "slotswap/internal/slots/errors"
	slotservice "slotswap/internal/slots/service"
	swapserrors "slotswap/internal/swaps/errors"
	"slotswap/internal/swaps/events"
	"slotswap/internal/swaps/repository"
	"slotswap/internal/swaps/validator"
	"slotswap/pkg/config"
	"slotswap/pkg/db"
	apperrors "slotswap/pkg/errors"
	"slotswap/pkg/model"
	"slotswap/pkg/sanitizer"
	"slotswap/pkg/validation"
	"time"

	"github.com/google/uuid"
)

// SwapService coordinates swap requests and the paired slot mutations they
// imply. Propose and Respond each run as a single unit of work.
type SwapService interface {
	Propose(ctx context.Context, requesterID string, input *model.ProposeSwapInput) (*model.SwapRequest, error)
	Respond(ctx context.Context, requestID, responderID string, resp *model.SwapResponse) (*model.SwapRequest, error)
	GetRequest(ctx context.Context, requestID, callerID string) (*model.SwapRequest, error)
}

type swapService struct {
	requests  repository.SwapRequestRepository
	locks     repository.SwapLockRepository
	slots     slotservice.ProtocolSlots
	txManager db.TransactionManager
	validator *validator.SwapValidator
	publisher events.Publisher
	cfg       *config.Config
}

func NewSwapService(
	requests repository.SwapRequestRepository,
	locks repository.SwapLockRepository,
	slots slotservice.ProtocolSlots,
	txManager db.TransactionManager,
	validator *validator.SwapValidator,
	publisher events.Publisher,
	cfg *config.Config,
) SwapService {
	return &swapService{
		requests:  requests,
		locks:     locks,
		slots:     slots,
		txManager: txManager,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *swapService) Propose(ctx context.Context, requesterID string, input *model.ProposeSwapInput) (*model.SwapRequest, error) {
	if requesterID == "" {
		return nil, apperrors.Unauthenticated()
	}

	input.OfferedSlotID = sanitizer.SanitizeID(input.OfferedSlotID)
	input.TargetSlotID = sanitizer.SanitizeID(input.TargetSlotID)
	input.Message = sanitizer.SanitizeText(input.Message)
	if err := s.validator.ValidateProposal(input); err != nil {
		s.cfg.Log.WithContext(ctx).Warn("Swap proposal validation failed", "error", err)
		return nil, validationError("Invalid swap proposal", err)
	}

	lock, err := s.acquirePairLock(ctx, input.OfferedSlotID, input.TargetSlotID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.locks.Delete(context.WithoutCancel(ctx), lock); releaseErr != nil {
			s.cfg.Log.WithContext(ctx).Warn("Failed to release swap lock", "lock_id", lock.ID, "error", releaseErr)
		}
	}()

	var created *model.SwapRequest
	err = s.txManager.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		offered, err := s.loadSlot(txCtx, input.OfferedSlotID)
		if err != nil {
			return err
		}
		target, err := s.loadSlot(txCtx, input.TargetSlotID)
		if err != nil {
			return err
		}

		if !offered.OwnedBy(requesterID) {
			return apperrors.Forbidden("You can only offer your own slots")
		}
		if target.OwnedBy(requesterID) {
			return apperrors.InvalidTarget()
		}

		existing, err := s.requests.FindPendingByPair(txCtx, offered.ID, target.ID)
		switch {
		case err == nil:
		case errors.Is(err, swapserrors.ErrNotFound):
			existing = nil
		default:
			return err
		}

		for _, slot := range []*model.Slot{offered, target} {
			if slot.Status == model.SlotSwappable {
				continue
			}
			if slot.IsPending() && existing != nil {
				return apperrors.DuplicateRequest(existing.ID)
			}
			return apperrors.NotSwappable(slot.ID)
		}
		if existing != nil {
			return apperrors.DuplicateRequest(existing.ID)
		}

		req := &model.SwapRequest{
			ID:            uuid.NewString(),
			RequesterID:   requesterID,
			TargetOwnerID: target.OwnerID,
			OfferedSlotID: offered.ID,
			TargetSlotID:  target.ID,
			Message:       input.Message,
			Status:        model.SwapPending,
			Version:       1,
			CreatedAt:     time.Now().UTC().Truncate(time.Millisecond),
		}
		if err := s.requests.Create(txCtx, req); err != nil {
			return err
		}
		if _, err := s.slots.ForcePending(txCtx, offered.ID); err != nil {
			return err
		}
		if _, err := s.slots.ForcePending(txCtx, target.ID); err != nil {
			return err
		}

		created = req
		return nil
	})
	if err != nil {
		s.logFailure(ctx, "Swap proposal failed", err,
			"requester_id", requesterID,
			"offered_slot_id", input.OfferedSlotID,
			"target_slot_id", input.TargetSlotID,
		)
		return nil, translate(err, "")
	}

	s.cfg.Log.WithContext(ctx).Info("Swap proposed",
		"request_id", created.ID,
		"requester_id", created.RequesterID,
		"target_owner_id", created.TargetOwnerID,
		"offered_slot_id", created.OfferedSlotID,
		"target_slot_id", created.TargetSlotID,
	)
	s.publisher.Publish(ctx, events.TypeSwapProposed, created)
	return created, nil
}

// Respond resolves a pending request. Accepting exchanges the owners of the
// two slots and marks both BUSY; rejecting returns both to SWAPPABLE.
func (s *swapService) Respond(ctx context.Context, requestID, responderID string, resp *model.SwapResponse) (*model.SwapRequest, error) {
	if responderID == "" {
		return nil, apperrors.Unauthenticated()
	}
	if err := s.validator.ValidateResponse(resp); err != nil {
		return nil, validationError("Invalid swap response", err)
	}
	accept := *resp.Accept

	var resolved *model.SwapRequest
	err := s.txManager.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.requests.FindByIDForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.TargetOwnerID != responderID {
			return apperrors.Forbidden("Only the target slot owner can respond to this request")
		}
		if req.Status.Terminal() {
			return apperrors.AlreadyResolved(req.ID, string(req.Status))
		}

		for _, slotID := range []string{req.OfferedSlotID, req.TargetSlotID} {
			if _, err := s.slots.Load(txCtx, slotID); err != nil {
				if errors.Is(err, slotserrors.ErrNotFound) {
					return apperrors.SlotsGone(req.ID)
				}
				return err
			}
		}

		if accept {
			if _, err := s.slots.TransferOwner(txCtx, req.OfferedSlotID, req.TargetOwnerID, model.SlotBusy); err != nil {
				return err
			}
			if _, err := s.slots.TransferOwner(txCtx, req.TargetSlotID, req.RequesterID, model.SlotBusy); err != nil {
				return err
			}
			req.Status = model.SwapAccepted
		} else {
			if _, err := s.slots.ForceStatus(txCtx, req.OfferedSlotID, model.SlotSwappable); err != nil {
				return err
			}
			if _, err := s.slots.ForceStatus(txCtx, req.TargetSlotID, model.SlotSwappable); err != nil {
				return err
			}
			req.Status = model.SwapRejected
		}

		now := time.Now().UTC().Truncate(time.Millisecond)
		req.RespondedAt = &now
		if err := s.requests.Update(txCtx, req); err != nil {
			return err
		}

		resolved = req
		return nil
	})
	if err != nil {
		s.logFailure(ctx, "Swap response failed", err,
			"request_id", requestID,
			"responder_id", responderID,
			"accept", accept,
		)
		return nil, translate(err, requestID)
	}

	s.cfg.Log.WithContext(ctx).Info("Swap resolved",
		"request_id", resolved.ID,
		"status", resolved.Status,
		"requester_id", resolved.RequesterID,
		"target_owner_id", resolved.TargetOwnerID,
	)
	s.publisher.Publish(ctx, events.TypeFor(resolved.Status), resolved)
	return resolved, nil
}

func (s *swapService) GetRequest(ctx context.Context, requestID, callerID string) (*model.SwapRequest, error) {
	if callerID == "" {
		return nil, apperrors.Unauthenticated()
	}

	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, translate(err, requestID)
	}
	if !req.Involves(callerID) {
		return nil, apperrors.Forbidden("Only the parties of a swap request can view it")
	}
	return req, nil
}

// --- Helpers ---

func (s *swapService) loadSlot(ctx context.Context, slotID string) (*model.Slot, error) {
	slot, err := s.slots.Load(ctx, slotID)
	if err != nil {
		if errors.Is(err, slotserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Slot", slotID)
		}
		return nil, err
	}
	return slot, nil
}

// acquirePairLock takes the advisory lock for an ordered slot pair. A held
// lock means another proposal for the same pair is in flight.
func (s *swapService) acquirePairLock(ctx context.Context, offeredSlotID, targetSlotID string) (*model.SwapLock, error) {
	lockID := fmt.Sprintf("swap_lock_%s_%s", offeredSlotID, targetSlotID)
	lock := &model.SwapLock{
		ID:        lockID,
		ExpiresAt: time.Now().UTC().Add(s.cfg.SwapLockTTL),
	}

	if err := s.locks.Create(ctx, lock); err != nil {
		if errors.Is(err, swapserrors.ErrLockHeld) || db.IsConflict(err) {
			s.cfg.Log.WithContext(ctx).Warn("Swap lock busy", "lock_id", lockID)
			return nil, apperrors.Conflict("A proposal for these slots is already being processed, please retry")
		}
		return nil, apperrors.Internal("Failed to acquire swap lock", err)
	}
	return lock, nil
}

func (s *swapService) logFailure(ctx context.Context, msg string, err error, args ...any) {
	log := s.cfg.Log.WithContext(ctx)
	args = append(args, "error", err)
	if apperrors.IsAppError(err) || db.IsConflict(err) || errors.Is(err, swapserrors.ErrDuplicatePending) {
		log.Warn(msg, args...)
		return
	}
	log.Error(msg, args...)
}

func validationError(message string, err error) error {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}

func translate(err error, requestID string) error {
	if apperrors.IsAppError(err) {
		return err
	}
	switch {
	case errors.Is(err, swapserrors.ErrNotFound):
		return apperrors.NotFoundWithID("SwapRequest", requestID)
	case errors.Is(err, swapserrors.ErrDuplicatePending):
		return apperrors.DuplicateRequest(requestID)
	case errors.Is(err, slotserrors.ErrNotFound):
		return apperrors.SlotsGone(requestID)
	case db.IsConflict(err):
		return apperrors.Conflict("Slots were modified concurrently, please retry")
	}
	return apperrors.Internal("Failed to process swap request", err)
}
