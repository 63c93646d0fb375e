package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"shakti-shield/internal/config"
	"shakti-shield/internal/models"
	"shakti-shield/internal/repositories/interfaces"
	"shakti-shield/internal/utils"
	"shakti-shield/internal/validators"
	"shakti-shield/pkg/cache"
	"shakti-shield/pkg/logger"
)

type SOSService interface {
	// Lifecycle
	Trigger(ctx context.Context, user *models.AuthUser, req *models.TriggerSOSRequest) (*models.SOSSummary, error)
	Resolve(ctx context.Context, sosID, requesterID primitive.ObjectID, notes string) (*models.SOSRequest, error)
	Cancel(ctx context.Context, sosID, requesterID primitive.ObjectID) (*models.SOSRequest, error)
	MarkFalseAlarm(ctx context.Context, sosID, requesterID primitive.ObjectID, notes string) (*models.SOSRequest, error)
	AddNote(ctx context.Context, sosID, requesterID primitive.ObjectID, message string) (*models.SOSRequest, error)

	// Queries
	GetActive(ctx context.Context, userID primitive.ObjectID) (*models.ActiveSOSView, error)
	GetHistory(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SOSRequest, int64, error)
	GetByID(ctx context.Context, sosID, requesterID primitive.ObjectID) (*models.SOSRequest, error)
}

type SOSServiceConfig struct {
	BroadcastMode string
	// BroadcastTimeout bounds how long an inline trigger waits for the
	// broadcast; BroadcastJobTimeout bounds the broadcast itself.
	BroadcastTimeout    time.Duration
	BroadcastJobTimeout time.Duration
	TriggerLockTTL      time.Duration
	DefaultMessage      string
}

const (
	autoResolveAttempts = 3
	autoResolveBackoff  = 50 * time.Millisecond
)

func SOSServiceConfigFrom(cfg *config.SOSConfig) SOSServiceConfig {
	return SOSServiceConfig{
		BroadcastMode:       cfg.BroadcastMode,
		BroadcastTimeout:    cfg.BroadcastTimeout,
		BroadcastJobTimeout: cfg.BroadcastJobTimeout,
		TriggerLockTTL:      cfg.TriggerLockTTL,
		DefaultMessage:      cfg.DefaultMessage,
	}
}

type sosService struct {
	sosRepo     interfaces.SOSRepository
	userRepo    interfaces.UserRepository
	notifier    Notifier
	broadcaster Broadcaster
	dispatcher  *Dispatcher
	locker      cache.Locker
	metrics     *Metrics
	config      SOSServiceConfig
	logger      *logger.Logger
}

func NewSOSService(
	cfg SOSServiceConfig,
	sosRepo interfaces.SOSRepository,
	userRepo interfaces.UserRepository,
	notifier Notifier,
	broadcaster Broadcaster,
	dispatcher *Dispatcher,
	locker cache.Locker,
	metrics *Metrics,
	log *logger.Logger,
) SOSService {
	if cfg.BroadcastMode == "" {
		cfg.BroadcastMode = config.BroadcastModeInline
	}
	if cfg.BroadcastTimeout <= 0 {
		cfg.BroadcastTimeout = 30 * time.Second
	}
	if cfg.TriggerLockTTL <= 0 {
		cfg.TriggerLockTTL = utils.TriggerLockTTL
	}
	if cfg.DefaultMessage == "" {
		cfg.DefaultMessage = models.DefaultSOSMessage
	}
	if locker == nil {
		locker = cache.NewMemoryLocker()
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &sosService{
		sosRepo:     sosRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		broadcaster: broadcaster,
		dispatcher:  dispatcher,
		locker:      locker,
		metrics:     metrics,
		config:      cfg,
		logger:      log,
	}
}

func (s *sosService) Trigger(ctx context.Context, authUser *models.AuthUser, req *models.TriggerSOSRequest) (*models.SOSSummary, error) {
	if errs := validators.ValidateTriggerSOSRequest(req); len(errs) > 0 {
		s.metrics.trigger("invalid")
		return nil, errs
	}

	user, err := s.userRepo.GetByID(ctx, authUser.ID)
	if err != nil {
		s.metrics.trigger("error")
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	sos := s.newSOSRequest(authUser, req)

	if err := s.replaceActive(ctx, authUser.ID, sos); err != nil {
		s.metrics.trigger("error")
		return nil, err
	}
	s.metrics.trigger("created")

	log := s.logger.WithSOSID(sos.ID).WithUserID(sos.UserID)
	log.LogSOSEvent(sos.ID, sos.UserID, utils.EventSOSTriggered, map[string]interface{}{
		"priority":     sos.Priority,
		"triggered_by": sos.TriggeredBy,
		"contacts":     len(user.TrustedContacts),
	})

	payload := models.NewNotificationPayload(sos)

	// The record exists from here on; nothing below depends on the caller
	// staying connected.
	detached := context.WithoutCancel(ctx)

	// Broadcast and contact fan-out run side by side.
	broadcastDone := s.startBroadcast(detached, sos.UserID, payload)

	results := s.notifyContacts(detached, user.TrustedContacts, payload)
	sos.TrustedContactsNotified = contactNotifications(user.TrustedContacts, results, time.Now())

	<-broadcastDone

	if err := s.sosRepo.SetContactNotifications(detached, sos.ID, sos.TrustedContactsNotified); err != nil {
		log.WithError(err).Error("Failed to persist contact notification statuses")
	}
	if err := s.userRepo.UpdateLastKnownLocation(detached, sos.UserID, sos.Location.ToLastKnown(time.Now())); err != nil {
		log.WithError(err).Warn("Failed to update last known location")
	}

	return sos.Summary(), nil
}

func (s *sosService) newSOSRequest(user *models.AuthUser, req *models.TriggerSOSRequest) *models.SOSRequest {
	message := validators.SanitizeInput(req.Message)
	if message == "" {
		message = s.config.DefaultMessage
	}
	priority := req.Priority
	if priority == "" {
		priority = models.SOSPriorityHigh
	}
	triggeredBy := req.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = models.SOSTriggerButton
	}

	return &models.SOSRequest{
		ID:     primitive.NewObjectID(),
		UserID: user.ID,
		User: models.UserSnapshot{
			Name:  user.Name,
			Phone: user.Phone,
			Email: user.Email,
		},
		Location:                req.Location.ToLocation(),
		Status:                  models.SOSStatusActive,
		Priority:                priority,
		TriggeredBy:             triggeredBy,
		Message:                 message,
		TrustedContactsNotified: []models.ContactNotification{},
		Notes:                   []models.SOSNote{},
		Metadata:                req.Metadata,
	}
}

// replaceActive auto-resolves the user's current active request and stores
// sos in its place while holding the per-user trigger lock. When the previous
// request cannot be resolved, sos is merged into it instead.
func (s *sosService) replaceActive(ctx context.Context, userID primitive.ObjectID, sos *models.SOSRequest) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.config.TriggerLockTTL)
	defer cancel()

	release, err := s.locker.Acquire(lockCtx, utils.CacheTriggerLockPrefix+userID.Hex(), s.config.TriggerLockTTL)
	if err != nil {
		if errors.Is(err, cache.ErrLockTimeout) {
			return ErrTriggerInProgress
		}
		return fmt.Errorf("failed to acquire trigger lock: %w", err)
	}
	defer release()

	// A failure here surfaces as a duplicate key on Create below.
	_ = s.autoResolveActive(ctx, userID)

	err = s.sosRepo.Create(ctx, sos)
	if !mongo.IsDuplicateKeyError(err) {
		if err != nil {
			return fmt.Errorf("failed to create sos request: %w", err)
		}
		return nil
	}

	detached := context.WithoutCancel(ctx)
	resolveErr := utils.RetryWithBackoff(detached, func() error {
		return s.autoResolveActive(detached, userID)
	}, autoResolveAttempts, autoResolveBackoff)
	if resolveErr == nil {
		err = s.sosRepo.Create(detached, sos)
	}

	switch {
	case err == nil:
		return nil
	case mongo.IsDuplicateKeyError(err):
		return s.mergeIntoActive(detached, userID, sos)
	default:
		return fmt.Errorf("failed to create sos request: %w", err)
	}
}

// autoResolveActive resolves the user's active request, if any. A request
// that is already gone counts as resolved.
func (s *sosService) autoResolveActive(ctx context.Context, userID primitive.ObjectID) error {
	previous, err := s.sosRepo.GetActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil
		}
		s.logger.WithUserID(userID).WithError(err).Warn("Failed to look up active SOS for auto-resolve")
		return err
	}

	_, err = s.sosRepo.TransitionFromActive(ctx, previous.ID, interfaces.StatusTransition{
		Status:     models.SOSStatusResolved,
		ResolvedBy: &userID,
		Note: &models.SOSNote{
			AddedBy:   userID,
			Message:   models.AutoResolveNote,
			Timestamp: time.Now(),
		},
	})
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil
		}
		s.logger.WithSOSID(previous.ID).WithError(err).Warn("Failed to auto-resolve previous SOS")
		return err
	}

	s.logger.LogSOSEvent(previous.ID, userID, utils.EventSOSAutoResolved, nil)
	return nil
}

// mergeIntoActive points sos at the user's still-active request and records
// the new trigger on it as a note, so the fan-out runs against a stored record.
func (s *sosService) mergeIntoActive(ctx context.Context, userID primitive.ObjectID, sos *models.SOSRequest) error {
	prior, err := s.sosRepo.GetActiveByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to create sos request: %w", err)
	}

	note := models.SOSNote{
		AddedBy:   userID,
		Message:   retriggerNote(sos),
		Timestamp: time.Now(),
	}
	if _, err := s.sosRepo.AddNote(ctx, prior.ID, note); err != nil {
		s.logger.WithSOSID(prior.ID).WithError(err).Warn("Failed to note re-trigger on active SOS")
	}

	sos.ID = prior.ID
	sos.CreatedAt = prior.CreatedAt
	sos.UpdatedAt = note.Timestamp
	s.logger.LogSOSEvent(prior.ID, userID, utils.EventSOSMerged, map[string]interface{}{
		"reason": "auto_resolve_failed",
	})
	return nil
}

func retriggerNote(sos *models.SOSRequest) string {
	note := fmt.Sprintf("%s: %s [%s]", models.RetriggerNote, sos.Message, sos.Location.Coordinates())
	if sos.Location.Address != "" {
		note += " " + sos.Location.Address
	}
	return note
}

// notifyContacts returns one result per contact, in contact order.
func (s *sosService) notifyContacts(ctx context.Context, contacts []models.TrustedContact, p models.NotificationPayload) []models.ContactNotificationResult {
	results := make([]models.ContactNotificationResult, len(contacts))

	var wg sync.WaitGroup
	for i, contact := range contacts {
		wg.Add(1)
		go func(i int, contact models.TrustedContact) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = models.ContactNotificationResult{
						ContactID: contact.ID,
						Errors:    []string{fmt.Sprintf("notifier panicked: %v", r)},
					}
				}
			}()
			results[i] = s.notifier.Notify(ctx, contact, p)
		}(i, contact)
	}
	wg.Wait()

	return results
}

func contactNotifications(contacts []models.TrustedContact, results []models.ContactNotificationResult, at time.Time) []models.ContactNotification {
	notified := make([]models.ContactNotification, len(contacts))
	for i, c := range contacts {
		status := models.ContactNotificationFailed
		if results[i].Success {
			status = models.ContactNotificationSent
		}
		notified[i] = models.ContactNotification{
			ContactID:          c.ID,
			Name:               c.Name,
			Phone:              c.Phone,
			Email:              c.Email,
			NotifiedAt:         at,
			NotificationStatus: status,
		}
	}
	return notified
}

// startBroadcast returns a channel closed once the caller may respond: when
// the broadcast finishes or BroadcastTimeout elapses in inline mode,
// immediately in async mode. The broadcast itself runs until it finishes or
// BroadcastJobTimeout elapses.
func (s *sosService) startBroadcast(ctx context.Context, sender primitive.ObjectID, p models.NotificationPayload) <-chan struct{} {
	done := make(chan struct{})
	if s.broadcaster == nil {
		close(done)
		return done
	}

	job := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, max(s.config.BroadcastJobTimeout, s.config.BroadcastTimeout))
		defer cancel()

		summary := s.broadcaster.Broadcast(ctx, sender, p)
		s.logger.WithFields(map[string]interface{}{
			"sos_id":       p.SOSID,
			"event":        utils.EventSOSBroadcastDone,
			"success":      summary.Success,
			"push_sent":    summary.Push.Sent,
			"push_failed":  summary.Push.Failed,
			"sms_sent":     summary.SMS.Sent,
			"sms_failed":   summary.SMS.Failed,
			"tokens_clear": summary.Push.InvalidTokensCleared,
		}).Info("SOS broadcast finished")
	}

	if s.config.BroadcastMode == config.BroadcastModeAsync && s.dispatcher != nil {
		err := s.dispatcher.Submit(job)
		if err == nil {
			close(done)
			return done
		}
		s.logger.WithError(err).Warn("Broadcast dispatcher unavailable, broadcasting inline")
	}

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		defer func() {
			if r := recover(); r != nil {
				s.logger.WithField("panic", r).Error("SOS broadcast panicked")
			}
		}()
		job(ctx)
	}()

	go func() {
		defer close(done)
		timer := time.NewTimer(s.config.BroadcastTimeout)
		defer timer.Stop()
		select {
		case <-finished:
		case <-timer.C:
			s.logger.WithField("sos_id", p.SOSID).Warnf("SOS broadcast still running after %s, responding without it", s.config.BroadcastTimeout)
		}
	}()

	return done
}

func (s *sosService) Resolve(ctx context.Context, sosID, requesterID primitive.ObjectID, notes string) (*models.SOSRequest, error) {
	if errs := validators.ValidateResolveSOSRequest(&models.ResolveSOSRequest{Notes: notes}); len(errs) > 0 {
		return nil, errs
	}
	return s.transition(ctx, sosID, requesterID, models.SOSStatusResolved, notes, utils.EventSOSResolved)
}

func (s *sosService) Cancel(ctx context.Context, sosID, requesterID primitive.ObjectID) (*models.SOSRequest, error) {
	return s.transition(ctx, sosID, requesterID, models.SOSStatusCancelled, "", utils.EventSOSCancelled)
}

func (s *sosService) MarkFalseAlarm(ctx context.Context, sosID, requesterID primitive.ObjectID, notes string) (*models.SOSRequest, error) {
	if errs := validators.ValidateResolveSOSRequest(&models.ResolveSOSRequest{Notes: notes}); len(errs) > 0 {
		return nil, errs
	}
	return s.transition(ctx, sosID, requesterID, models.SOSStatusFalseAlarm, notes, utils.EventSOSFalseAlarm)
}

func (s *sosService) transition(ctx context.Context, sosID, requesterID primitive.ObjectID, to models.SOSStatus, notes, event string) (*models.SOSRequest, error) {
	sos, err := s.getOwned(ctx, sosID, requesterID)
	if err != nil {
		return nil, err
	}
	if sos.Status != models.SOSStatusActive {
		return nil, ErrSOSNotActive
	}

	t := interfaces.StatusTransition{Status: to}
	// Cancellation only stamps the time.
	if to != models.SOSStatusCancelled {
		t.ResolvedBy = &requesterID
	}
	if notes = validators.SanitizeInput(notes); notes != "" {
		t.Note = &models.SOSNote{AddedBy: requesterID, Message: notes, Timestamp: time.Now()}
	}

	updated, err := s.sosRepo.TransitionFromActive(ctx, sosID, t)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrSOSNotActive
		}
		return nil, fmt.Errorf("failed to update sos status: %w", err)
	}

	s.logger.LogSOSEvent(sosID, requesterID, event, map[string]interface{}{"status": to})
	return updated, nil
}

func (s *sosService) AddNote(ctx context.Context, sosID, requesterID primitive.ObjectID, message string) (*models.SOSRequest, error) {
	if errs := validators.ValidateAddSOSNoteRequest(&models.AddSOSNoteRequest{Message: message}); len(errs) > 0 {
		return nil, errs
	}
	if _, err := s.getOwned(ctx, sosID, requesterID); err != nil {
		return nil, err
	}

	updated, err := s.sosRepo.AddNote(ctx, sosID, models.SOSNote{
		AddedBy:   requesterID,
		Message:   validators.SanitizeInput(message),
		Timestamp: time.Now(),
	})
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrSOSNotFound
		}
		return nil, fmt.Errorf("failed to add note: %w", err)
	}

	s.logger.LogSOSEvent(sosID, requesterID, utils.EventSOSNoteAdded, nil)
	return updated, nil
}

func (s *sosService) GetActive(ctx context.Context, userID primitive.ObjectID) (*models.ActiveSOSView, error) {
	sos, err := s.sosRepo.GetActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active sos: %w", err)
	}
	return sos.ActiveView(), nil
}

func (s *sosService) GetHistory(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SOSRequest, int64, error) {
	if params == nil {
		params = utils.NewPaginationParams(1, utils.DefaultPageSize)
	}
	requests, total, err := s.sosRepo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get sos history: %w", err)
	}
	return requests, total, nil
}

func (s *sosService) GetByID(ctx context.Context, sosID, requesterID primitive.ObjectID) (*models.SOSRequest, error) {
	return s.getOwned(ctx, sosID, requesterID)
}

func (s *sosService) getOwned(ctx context.Context, sosID, requesterID primitive.ObjectID) (*models.SOSRequest, error) {
	sos, err := s.sosRepo.GetByID(ctx, sosID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrSOSNotFound
		}
		return nil, fmt.Errorf("failed to get sos request: %w", err)
	}
	if sos.UserID != requesterID {
		return nil, ErrNotSOSOwner
	}
	return sos, nil
}
