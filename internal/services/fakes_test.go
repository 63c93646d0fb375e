package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"shakti-shield/internal/models"
	"shakti-shield/internal/repositories/interfaces"
	"shakti-shield/internal/utils"
	"shakti-shield/pkg/email"
	"shakti-shield/pkg/push"
	"shakti-shield/pkg/sms"
)

// fakeUserRepo keeps users in memory.
type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[primitive.ObjectID]*models.User
	cleared [][]string
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[primitive.ObjectID]*models.User{}}
	for _, u := range users {
		r.put(u)
	}
	return r
}

func (r *fakeUserRepo) put(u *models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	r.users[u.ID] = u
}

func (r *fakeUserRepo) get(id primitive.ObjectID) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil
	}
	cp := *u
	cp.TrustedContacts = append([]models.TrustedContact(nil), u.TrustedContacts...)
	return &cp
}

func (r *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if u := r.get(id); u != nil {
		return u, nil
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeUserRepo) FindByEmailOrPhone(_ context.Context, mail, phone string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mail = strings.ToLower(mail)
	for _, u := range r.sorted() {
		if (mail != "" && u.Email == mail) || (phone != "" && u.Phone == phone) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeUserRepo) ListWithPushToken(_ context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.User
	for _, u := range r.sorted() {
		if u.PushToken() != "" {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) ListWithoutPushToken(_ context.Context, exclude primitive.ObjectID) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.User
	for _, u := range r.sorted() {
		if u.ID != exclude && u.PushToken() == "" && u.Phone != "" {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) SetPushToken(_ context.Context, id primitive.ObjectID, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	u.FCMToken = token
	return nil
}

func (r *fakeUserRepo) ClearPushTokens(_ context.Context, tokens []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared = append(r.cleared, tokens)
	var n int64
	for _, u := range r.users {
		for _, t := range tokens {
			if u.PushToken() == t {
				u.FCMToken = nil
				n++
				break
			}
		}
	}
	return n, nil
}

func (r *fakeUserRepo) SetTrustedContacts(_ context.Context, id primitive.ObjectID, contacts []models.TrustedContact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	u.TrustedContacts = append([]models.TrustedContact(nil), contacts...)
	return nil
}

func (r *fakeUserRepo) UpdateLastKnownLocation(_ context.Context, id primitive.ObjectID, loc models.LastKnownLocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	u.LastKnownLocation = &loc
	return nil
}

// sorted returns users in id order so lookups are deterministic. Callers hold mu.
func (r *fakeUserRepo) sorted() []*models.User {
	out := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out
}

// fakeSOSRepo enforces one active request per user like the partial unique index.
type fakeSOSRepo struct {
	mu       sync.Mutex
	requests map[primitive.ObjectID]*models.SOSRequest
	order    []primitive.ObjectID
	failSave error
}

func newFakeSOSRepo() *fakeSOSRepo {
	return &fakeSOSRepo{requests: map[primitive.ObjectID]*models.SOSRequest{}}
}

func duplicateKeyError() error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}}}
}

func (r *fakeSOSRepo) Create(_ context.Context, sos *models.SOSRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave != nil {
		return r.failSave
	}
	for _, existing := range r.requests {
		if existing.UserID == sos.UserID && existing.Status == models.SOSStatusActive {
			return duplicateKeyError()
		}
	}
	if sos.ID.IsZero() {
		sos.ID = primitive.NewObjectID()
	}
	sos.CreatedAt = time.Now()
	sos.UpdatedAt = sos.CreatedAt
	cp := *sos
	r.requests[sos.ID] = &cp
	r.order = append(r.order, sos.ID)
	return nil
}

func (r *fakeSOSRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.SOSRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.requests[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSOSRepo) GetActiveByUser(_ context.Context, userID primitive.ObjectID) (*models.SOSRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		s := r.requests[id]
		if s.UserID == userID && s.Status == models.SOSStatusActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeSOSRepo) ListByUser(_ context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SOSRequest, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*models.SOSRequest
	for i := len(r.order) - 1; i >= 0; i-- {
		s := r.requests[r.order[i]]
		if s.UserID == userID {
			cp := *s
			all = append(all, &cp)
		}
	}
	start := params.GetSkip()
	if start > len(all) {
		start = len(all)
	}
	end := start + params.GetLimit()
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (r *fakeSOSRepo) TransitionFromActive(_ context.Context, id primitive.ObjectID, t interfaces.StatusTransition) (*models.SOSRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.requests[id]
	if !ok || s.Status != models.SOSStatusActive {
		return nil, interfaces.ErrNotFound
	}
	now := time.Now()
	s.Status = t.Status
	s.ResolvedAt = &now
	if t.ResolvedBy != nil {
		by := *t.ResolvedBy
		s.ResolvedBy = &by
	}
	if t.Note != nil {
		s.Notes = append(s.Notes, *t.Note)
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSOSRepo) AddNote(_ context.Context, id primitive.ObjectID, note models.SOSNote) (*models.SOSRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.requests[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	s.Notes = append(s.Notes, note)
	cp := *s
	return &cp, nil
}

func (r *fakeSOSRepo) SetContactNotifications(_ context.Context, id primitive.ObjectID, notified []models.ContactNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.requests[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	s.TrustedContactsNotified = append([]models.ContactNotification(nil), notified...)
	return nil
}

// unresolvableSOSRepo fails every status transition, as a flaky primary would.
type unresolvableSOSRepo struct {
	*fakeSOSRepo
	attempts atomic.Int32
}

func (r *unresolvableSOSRepo) TransitionFromActive(context.Context, primitive.ObjectID, interfaces.StatusTransition) (*models.SOSRequest, error) {
	r.attempts.Add(1)
	return nil, errors.New("connection reset by peer")
}

func (r *fakeSOSRepo) byUser(userID primitive.ObjectID) []*models.SOSRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.SOSRequest
	for _, id := range r.order {
		if s := r.requests[id]; s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out
}

func (r *fakeSOSRepo) setStatus(id primitive.ObjectID, status models.SOSStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[id].Status = status
}

// fakeSMS fails for numbers in fail, sleeps for numbers in delay and panics
// for panicOn.
type fakeSMS struct {
	mu      sync.Mutex
	fail    map[string]error
	delay   map[string]time.Duration
	panicOn string
	sent    []string
}

func (f *fakeSMS) Name() string { return "fake" }

func (f *fakeSMS) SendSMS(ctx context.Context, req *sms.SMSRequest) (*sms.SMSResponse, error) {
	if req.To == f.panicOn {
		panic("provider exploded")
	}
	if d := f.delay[req.To]; d > 0 {
		time.Sleep(d)
	}
	if err := f.fail[req.To]; err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req.To)
	return &sms.SMSResponse{MessageID: "SM" + req.To, Status: "queued"}, nil
}

func (f *fakeSMS) sentTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fakeEmail struct {
	mu   sync.Mutex
	fail map[string]error
	sent []*email.EmailRequest
}

func (f *fakeEmail) Name() string { return "fake" }

func (f *fakeEmail) SendEmail(_ context.Context, req *email.EmailRequest) (*email.EmailResponse, error) {
	if err := f.fail[req.To]; err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	return &email.EmailResponse{MessageID: "<" + req.To + ">"}, nil
}

// fakePush treats tokens in invalid as unregistered.
type fakePush struct {
	mu         sync.Mutex
	invalid    map[string]bool
	batchErr   error
	single     []string
	multicasts [][]string
}

func (f *fakePush) Name() string { return "fake" }

func (f *fakePush) SendNotification(_ context.Context, req *push.NotificationRequest) (*push.NotificationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.single = append(f.single, req.Token)
	if f.invalid[req.Token] {
		err := errors.New("registration-token-not-registered")
		return &push.NotificationResponse{Token: req.Token, Error: err.Error(), InvalidToken: true}, err
	}
	return &push.NotificationResponse{Token: req.Token, Success: true, MessageID: "msg-" + req.Token}, nil
}

func (f *fakePush) SendMulticast(_ context.Context, _ *push.NotificationRequest, tokens []string) (*push.MulticastResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.multicasts = append(f.multicasts, append([]string(nil), tokens...))
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := &push.MulticastResponse{}
	for _, t := range tokens {
		if f.invalid[t] {
			out.FailureCount++
			out.Responses = append(out.Responses, &push.NotificationResponse{Token: t, Error: "not registered", InvalidToken: true})
			continue
		}
		out.SuccessCount++
		out.Responses = append(out.Responses, &push.NotificationResponse{Token: t, Success: true, MessageID: fmt.Sprintf("msg-%s", t)})
	}
	return out, nil
}

func (f *fakePush) multicastTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []string
	for _, m := range f.multicasts {
		all = append(all, m...)
	}
	return all
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }
