// Package services – AdoptionService
//
// This file implements the adoption workflow engine, the component
// orchestrating the adoption-request state machine and its side effects.
// A request is created as pending, and resolved exactly once: approved or
// rejected by an admin, or cancelled (hard-deleted) by its owner while still
// pending.
//
// Side-effect ordering is fixed: the relational mutation commits first, then
// animal caches are invalidated, then the event is published on the bus and
// the requester is notified. Only the relational mutation can fail the
// operation. Cache-invalidation failures are logged at error level so a
// cache-layer outage is distinguishable from the expected best-effort noise
// of notification and push delivery, but they never alter the response.
package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/barinakhq/shelter-backend/internal/cache"
	"github.com/barinakhq/shelter-backend/internal/domain"
	"github.com/barinakhq/shelter-backend/internal/repo"
)

// Workflow actions accepted by Process.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// Notifier persists a notification and mirrors it to the live channel.
// Satisfied by *NotificationService. Implementations swallow their own
// errors; the workflow never observes notification failures.
type Notifier interface {
	Notify(ctx context.Context, userID uint, typ, title, message string, data map[string]any)
}

// CacheInvalidator deletes cached entries by glob pattern.
// Satisfied by *cache.Store.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) (int, error)
}

// EventPublisher announces workflow transitions on the pub/sub bus.
// Satisfied by *pubsub.Publisher.
type EventPublisher interface {
	AdoptionApproved(ctx context.Context, requestID, userID, animalID uint)
	AdoptionRejected(ctx context.Context, requestID, userID, animalID uint, reason string)
	AnimalAdopted(ctx context.Context, animalID, userID uint)
	AnimalUpdated(ctx context.Context, animalID uint)
}

// AdoptionService implements the adoption-request lifecycle. All
// dependencies besides DB are optional side channels: a nil Notifier, Bus,
// Cache, or Push disables the corresponding effect without changing the
// primary state transition.
type AdoptionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Notifier persists and pushes per-user notifications.
	Notifier Notifier
	// Cache is invalidated after every state transition.
	Cache CacheInvalidator
	// Bus carries transitions to other instances.
	Bus EventPublisher
	// Push is used for the admin-scoped processed broadcast.
	Push PushChannel
}

// NewAdoptionService constructs an AdoptionService.
func NewAdoptionService(db *gorm.DB, n Notifier, c CacheInvalidator, bus EventPublisher, p PushChannel) *AdoptionService {
	return &AdoptionService{DB: db, Notifier: n, Cache: c, Bus: bus, Push: p}
}

// Create files a new pending request by requesterID for animalID.
//
// Semantics and validation:
//   - animalID must be positive; otherwise ErrInvalidAnimalID.
//   - An existing pending request by the same user for the same animal is
//     rejected with ErrDuplicateRequest. The check runs twice: an advisory
//     read before the insert (friendly fast path) and the partial unique
//     index at insert time (authoritative under races).
//   - A foreign-key violation on insert (animal deleted concurrently) maps
//     to ErrInvalidAnimal.
//
// On success, the requester is notified ("request submitted") and receives a
// live event if connected; both effects are best-effort.
func (s *AdoptionService) Create(ctx context.Context, requesterID, animalID uint, message string) (*domain.AdoptionRequest, error) {
	if animalID == 0 {
		return nil, ErrInvalidAnimalID
	}

	pending, err := repo.HasPendingRequest(ctx, s.DB, requesterID, animalID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrDuplicateRequest
	}

	ar, err := repo.CreateRequest(ctx, s.DB, requesterID, animalID, message)
	if err != nil {
		switch {
		case isDuplicate(err):
			// Lost the race past the advisory check; same outcome.
			return nil, ErrDuplicateRequest
		case isForeignKeyViolation(err):
			return nil, ErrInvalidAnimal
		}
		return nil, err
	}

	s.notify(ctx, requesterID, TypeRequestCreated,
		"Adoption request submitted",
		"Your adoption request was submitted and is awaiting admin review.",
		map[string]any{"adoption_request_id": ar.ID, "animal_id": animalID})

	return ar, nil
}

// Process resolves a pending request with the given action.
//
// The transition is a strict state machine: only pending requests may be
// processed; a request that has already been approved or rejected yields
// ErrAlreadyProcessed instead of re-running side effects. The pending guard
// is part of the UPDATE predicate, so two concurrent Process calls cannot
// both win.
//
// Approve marks the animal adopted by the requester (idempotently), reject
// leaves the animal untouched. Both branches invalidate the animal list and
// detail caches strictly after the relational mutation commits, publish the
// transition on the bus, notify the requester, and broadcast a processed
// event to connected administrators.
func (s *AdoptionService) Process(ctx context.Context, requestID uint, action string) (*domain.AdoptionRequest, error) {
	if action != ActionApprove && action != ActionReject {
		return nil, ErrInvalidAction
	}

	ar, err := repo.GetRequest(ctx, s.DB, requestID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if ar.Status != domain.StatusPending {
		return nil, ErrAlreadyProcessed
	}

	var updated *domain.AdoptionRequest
	if action == ActionApprove {
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := repo.MarkAdopted(ctx, tx, ar.AnimalID, true, &ar.UserID); err != nil {
				if isNotFound(err) {
					return ErrAnimalNotFound
				}
				return err
			}
			updated, err = repo.MarkProcessed(ctx, tx, requestID, domain.StatusApproved)
			if err != nil {
				if isNotFound(err) {
					// Raced with another processor between the read above
					// and the guarded update.
					return ErrAlreadyProcessed
				}
				return err
			}
			return nil
		})
	} else {
		updated, err = repo.MarkProcessed(ctx, s.DB, requestID, domain.StatusRejected)
		if err != nil && isNotFound(err) {
			err = ErrAlreadyProcessed
		}
	}
	if err != nil {
		return nil, err
	}

	// Cache invalidation happens strictly after the mutation commits, so a
	// subsequent miss always observes the post-transition state.
	s.invalidateAnimalCaches(ctx, ar.AnimalID)

	if s.Bus != nil {
		if action == ActionApprove {
			s.Bus.AdoptionApproved(ctx, requestID, ar.UserID, ar.AnimalID)
			s.Bus.AnimalAdopted(ctx, ar.AnimalID, ar.UserID)
		} else {
			s.Bus.AdoptionRejected(ctx, requestID, ar.UserID, ar.AnimalID, "rejected by admin")
		}
	}

	data := map[string]any{"adoption_request_id": requestID, "animal_id": ar.AnimalID}
	if action == ActionApprove {
		s.notify(ctx, ar.UserID, TypeRequestApproved,
			"Adoption request approved",
			"Congratulations! Your adoption request was approved.", data)
	} else {
		s.notify(ctx, ar.UserID, TypeRequestRejected,
			"Adoption request rejected",
			"Unfortunately your adoption request was rejected.", data)
	}

	if s.Push != nil {
		s.Push.BroadcastAdmins("notification", map[string]any{
			"type":    TypeRequestProcessed,
			"title":   "Adoption request processed",
			"message": "An adoption request was " + action + "d.",
			"data":    map[string]any{"adoption_request_id": requestID, "animal_id": ar.AnimalID, "action": action},
		})
	}

	return updated, nil
}

// CancelMine hard-deletes requestID if it belongs to requesterID and is
// still pending. The eligibility predicate is part of the DELETE statement;
// when nothing is removed the request is re-read to distinguish
// ErrRequestNotFound from ErrCancelNotEligible. Cancelled requests leave no
// historical trace.
func (s *AdoptionService) CancelMine(ctx context.Context, requesterID, requestID uint) error {
	n, err := repo.DeleteIfOwnerPending(ctx, s.DB, requestID, requesterID)
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := repo.GetRequest(ctx, s.DB, requestID); err != nil {
			if isNotFound(err) {
				return ErrRequestNotFound
			}
			return err
		}
		return ErrCancelNotEligible
	}

	s.notify(ctx, requesterID, TypeRequestCancelled,
		"Adoption request cancelled",
		"Your adoption request was cancelled.",
		map[string]any{"adoption_request_id": requestID})

	return nil
}

// List returns every request joined with requester and animal details
// (admin view).
func (s *AdoptionService) List(ctx context.Context) ([]repo.RequestDetails, error) {
	return repo.ListRequests(ctx, s.DB)
}

// ListMine returns the caller's requests joined with animal details.
func (s *AdoptionService) ListMine(ctx context.Context, userID uint) ([]repo.RequestDetails, error) {
	return repo.ListUserRequestsWithAnimal(ctx, s.DB, userID)
}

// Get returns a single request by id.
func (s *AdoptionService) Get(ctx context.Context, id uint) (*domain.AdoptionRequest, error) {
	ar, err := repo.GetRequest(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return ar, nil
}

// notify forwards to the Notifier when one is configured.
func (s *AdoptionService) notify(ctx context.Context, userID uint, typ, title, message string, data map[string]any) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.Notify(ctx, userID, typ, title, message, data)
}

// invalidateAnimalCaches drops the animal list caches and the specific
// animal's entry. Failures are logged at error level, distinct from the
// warn-level noise of the best-effort side channels, so operators can spot
// a cache-layer outage; they never fail the workflow.
func (s *AdoptionService) invalidateAnimalCaches(ctx context.Context, animalID uint) {
	if s.Cache == nil {
		return
	}
	if _, err := s.Cache.Invalidate(ctx, cache.PatternAnimalLists); err != nil {
		log.Error().Err(err).Msg("cache invalidation failed after adoption transition")
	}
	if _, err := s.Cache.Invalidate(ctx, cache.AnimalKey(animalID)); err != nil {
		log.Error().Err(err).Uint("animal_id", animalID).Msg("cache invalidation failed after adoption transition")
	}
}
