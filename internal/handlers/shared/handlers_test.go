package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"shakti-shield/internal/middleware"
	"shakti-shield/internal/models"
	"shakti-shield/internal/services"
	"shakti-shield/internal/utils"
	"shakti-shield/internal/validators"
	"shakti-shield/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var caller = &models.AuthUser{ID: primitive.NewObjectID(), Name: "Asha", Phone: "+15551230000"}

type fakeSOSService struct {
	services.SOSService

	triggerErr error
	transitErr error
	active     *models.ActiveSOSView
	history    []*models.SOSRequest
	total      int64
	gotParams  *utils.PaginationParams
	gotNotes   string
	gotTrigger *models.TriggerSOSRequest
}

func (f *fakeSOSService) Trigger(_ context.Context, user *models.AuthUser, req *models.TriggerSOSRequest) (*models.SOSSummary, error) {
	f.gotTrigger = req
	if f.triggerErr != nil {
		return nil, f.triggerErr
	}
	return &models.SOSSummary{
		ID:               primitive.NewObjectID(),
		Status:           models.SOSStatusActive,
		Priority:         models.SOSPriorityHigh,
		Location:         req.Location.ToLocation(),
		TriggeredBy:      models.SOSTriggerButton,
		CreatedAt:        time.Now(),
		ContactsNotified: 2,
	}, nil
}

func (f *fakeSOSService) transition(id primitive.ObjectID, status models.SOSStatus) (*models.SOSRequest, error) {
	if f.transitErr != nil {
		return nil, f.transitErr
	}
	return &models.SOSRequest{ID: id, UserID: caller.ID, Status: status}, nil
}

func (f *fakeSOSService) Resolve(_ context.Context, id, _ primitive.ObjectID, notes string) (*models.SOSRequest, error) {
	f.gotNotes = notes
	return f.transition(id, models.SOSStatusResolved)
}

func (f *fakeSOSService) Cancel(_ context.Context, id, _ primitive.ObjectID) (*models.SOSRequest, error) {
	return f.transition(id, models.SOSStatusCancelled)
}

func (f *fakeSOSService) MarkFalseAlarm(_ context.Context, id, _ primitive.ObjectID, notes string) (*models.SOSRequest, error) {
	f.gotNotes = notes
	return f.transition(id, models.SOSStatusFalseAlarm)
}

func (f *fakeSOSService) AddNote(_ context.Context, id, _ primitive.ObjectID, message string) (*models.SOSRequest, error) {
	f.gotNotes = message
	return f.transition(id, models.SOSStatusActive)
}

func (f *fakeSOSService) GetActive(context.Context, primitive.ObjectID) (*models.ActiveSOSView, error) {
	return f.active, nil
}

func (f *fakeSOSService) GetHistory(_ context.Context, _ primitive.ObjectID, params *utils.PaginationParams) ([]*models.SOSRequest, int64, error) {
	f.gotParams = params
	return f.history, f.total, nil
}

func (f *fakeSOSService) GetByID(_ context.Context, id, _ primitive.ObjectID) (*models.SOSRequest, error) {
	return f.transition(id, models.SOSStatusActive)
}

func withCaller(c *gin.Context) {
	c.Set(middleware.ContextKeyUserID, caller.ID)
	c.Set(middleware.ContextKeyAuthUser, caller)
	c.Next()
}

func sosRouter(svc services.SOSService) *gin.Engine {
	h := NewSOSHandler(svc, logger.NewNop())
	r := gin.New()
	g := r.Group("/api/v1/sos", withCaller)
	g.POST("/trigger", h.Trigger)
	g.GET("/active", h.GetActive)
	g.GET("/history", h.GetHistory)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id/resolve", h.Resolve)
	g.PUT("/:id/cancel", h.Cancel)
	g.PUT("/:id/false-alarm", h.MarkFalseAlarm)
	g.POST("/:id/note", h.AddNote)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *utils.APIError `json:"error"`
	Meta    *utils.Meta     `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestSOSHandler_Trigger(t *testing.T) {
	svc := &fakeSOSService{}
	w := do(sosRouter(svc), http.MethodPost, "/api/v1/sos/trigger", `{"location":{"latitude":40.7128,"longitude":-74.006}}`)

	require.Equal(t, http.StatusCreated, w.Code)
	env := decode(t, w)
	assert.Equal(t, utils.StatusSuccess, env.Status)

	var summary models.SOSSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, models.SOSStatusActive, summary.Status)
	assert.Equal(t, 2, summary.ContactsNotified)
	assert.InDelta(t, 40.7128, summary.Location.Latitude, 1e-9)
}

func TestSOSHandler_TriggerErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{"malformed body", `{"location":`, nil, http.StatusBadRequest, utils.CodeBadRequest},
		{"validation", `{}`, validators.ValidationErrors{{Field: "location", Message: "location is required"}}, http.StatusBadRequest, utils.CodeValidationError},
		{"in progress", `{"location":{"latitude":1,"longitude":2}}`, services.ErrTriggerInProgress, http.StatusConflict, utils.CodeConflict},
		{"persistence", `{"location":{"latitude":1,"longitude":2}}`, fmt.Errorf("failed to create SOS request: %w", errors.New("mongo down")), http.StatusInternalServerError, utils.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(sosRouter(&fakeSOSService{triggerErr: tt.err}), http.MethodPost, "/api/v1/sos/trigger", tt.body)
			assert.Equal(t, tt.status, w.Code)
			env := decode(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			if tt.code == utils.CodeValidationError {
				assert.Contains(t, env.Error.Details, "location")
			}
		})
	}
}

func TestSOSHandler_GetActive(t *testing.T) {
	w := do(sosRouter(&fakeSOSService{}), http.MethodGet, "/api/v1/sos/active", "")
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.True(t, len(env.Data) == 0 || string(env.Data) == "null")

	id := primitive.NewObjectID()
	w = do(sosRouter(&fakeSOSService{active: &models.ActiveSOSView{ID: id, Status: models.SOSStatusActive}}), http.MethodGet, "/api/v1/sos/active", "")
	require.Equal(t, http.StatusOK, w.Code)
	var view models.ActiveSOSView
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &view))
	assert.Equal(t, id, view.ID)
}

func TestSOSHandler_GetHistory(t *testing.T) {
	svc := &fakeSOSService{
		history: []*models.SOSRequest{{ID: primitive.NewObjectID()}, {ID: primitive.NewObjectID()}},
		total:   12,
	}
	w := do(sosRouter(svc), http.MethodGet, "/api/v1/sos/history?page=2&limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)

	require.NotNil(t, svc.gotParams)
	assert.Equal(t, 2, svc.gotParams.Page)
	assert.Equal(t, 5, svc.gotParams.PageSize)

	env := decode(t, w)
	require.NotNil(t, env.Meta)
	require.NotNil(t, env.Meta.Pagination)
	assert.Equal(t, int64(12), env.Meta.Pagination.Total)
	assert.Equal(t, 3, env.Meta.Pagination.TotalPages)

	var raw struct {
		Meta struct {
			Pagination map[string]interface{} `json:"pagination"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Equal(t, float64(2), raw.Meta.Pagination["currentPage"])
	assert.Equal(t, float64(3), raw.Meta.Pagination["totalPages"])
	assert.Equal(t, float64(12), raw.Meta.Pagination["totalItems"])
	assert.Equal(t, float64(5), raw.Meta.Pagination["itemsPerPage"])

	var items []models.SOSRequest
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, 2)
}

func TestSOSHandler_Transitions(t *testing.T) {
	id := primitive.NewObjectID().Hex()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		err    error
		status int
		code   string
	}{
		{"resolve with notes", http.MethodPut, "/resolve", `{"notes":"safe now"}`, nil, http.StatusOK, ""},
		{"resolve without body", http.MethodPut, "/resolve", "", nil, http.StatusOK, ""},
		{"cancel", http.MethodPut, "/cancel", "", nil, http.StatusOK, ""},
		{"false alarm", http.MethodPut, "/false-alarm", `{"notes":"pocket"}`, nil, http.StatusOK, ""},
		{"note", http.MethodPost, "/note", `{"message":"on my way"}`, nil, http.StatusOK, ""},
		{"not owner", http.MethodPut, "/resolve", "", services.ErrNotSOSOwner, http.StatusForbidden, utils.CodeForbidden},
		{"not active", http.MethodPut, "/cancel", "", services.ErrSOSNotActive, http.StatusBadRequest, utils.CodeSOSNotActive},
		{"not found", http.MethodPut, "/false-alarm", "", services.ErrSOSNotFound, http.StatusNotFound, utils.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeSOSService{transitErr: tt.err}
			w := do(sosRouter(svc), tt.method, "/api/v1/sos/"+id+tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.code != "" {
				env := decode(t, w)
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.code, env.Error.Code)
			}
		})
	}
}

func TestSOSHandler_PassesNotes(t *testing.T) {
	svc := &fakeSOSService{}
	id := primitive.NewObjectID().Hex()
	do(sosRouter(svc), http.MethodPut, "/api/v1/sos/"+id+"/resolve", `{"notes":"home safe"}`)
	assert.Equal(t, "home safe", svc.gotNotes)
}

func TestSOSHandler_InvalidID(t *testing.T) {
	w := do(sosRouter(&fakeSOSService{}), http.MethodGet, "/api/v1/sos/not-an-id", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSOSHandler_RequiresAuth(t *testing.T) {
	h := NewSOSHandler(&fakeSOSService{}, logger.NewNop())
	r := gin.New()
	r.GET("/api/v1/sos/active", h.GetActive)

	w := do(r, http.MethodGet, "/api/v1/sos/active", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type fakeContactService struct {
	services.ContactService

	contacts []models.TrustedContact
	addErr   error
	primary  *models.TrustedContact
}

func (f *fakeContactService) List(context.Context, primitive.ObjectID) ([]models.TrustedContact, error) {
	return f.contacts, nil
}

func (f *fakeContactService) Add(_ context.Context, _ primitive.ObjectID, req *models.ContactRequest) (*models.TrustedContact, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	return &models.TrustedContact{ID: primitive.NewObjectID(), Name: req.Name, Phone: req.Phone}, nil
}

func (f *fakeContactService) Delete(_ context.Context, _, contactID primitive.ObjectID) error {
	for _, c := range f.contacts {
		if c.ID == contactID {
			return nil
		}
	}
	return services.ErrContactNotFound
}

func (f *fakeContactService) GetPrimary(context.Context, primitive.ObjectID) (*models.TrustedContact, error) {
	return f.primary, nil
}

func contactRouter(svc services.ContactService) *gin.Engine {
	h := NewContactHandler(svc, logger.NewNop())
	r := gin.New()
	g := r.Group("/api/v1/contacts", withCaller)
	g.GET("", h.List)
	g.POST("", h.Add)
	g.GET("/primary", h.GetPrimary)
	g.DELETE("/:contactId", h.Delete)
	return r
}

func TestContactHandler(t *testing.T) {
	existing := models.TrustedContact{ID: primitive.NewObjectID(), Name: "Mom", Phone: "+15550001111"}
	svc := &fakeContactService{contacts: []models.TrustedContact{existing}}
	r := contactRouter(svc)

	w := do(r, http.MethodGet, "/api/v1/contacts", "")
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 1, env.Meta.Count)

	w = do(r, http.MethodPost, "/api/v1/contacts", `{"name":"Dad","phone":"+15550002222"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	svc.addErr = services.ErrDuplicateContact
	w = do(r, http.MethodPost, "/api/v1/contacts", `{"name":"Dad","phone":"+15550002222"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodDelete, "/api/v1/contacts/"+existing.ID.Hex(), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodDelete, "/api/v1/contacts/"+primitive.NewObjectID().Hex(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/v1/contacts/primary", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

type fakeNotificationService struct {
	services.NotificationService

	pushResult models.ChannelResult
	gotToken   string
}

func (f *fakeNotificationService) RegisterPushToken(_ context.Context, _ primitive.ObjectID, token string) error {
	f.gotToken = token
	return nil
}

func (f *fakeNotificationService) SendTestPush(_ context.Context, _ *models.AuthUser, token string) models.ChannelResult {
	f.gotToken = token
	return f.pushResult
}

func TestNotificationHandler(t *testing.T) {
	svc := &fakeNotificationService{pushResult: models.ChannelResult{Channel: models.ChannelPush, Success: true, MessageID: "m-1"}}
	h := NewNotificationHandler(svc, logger.NewNop())
	r := gin.New()
	g := r.Group("/api/v1/notifications", withCaller)
	g.PUT("/token", h.RegisterPushToken)
	g.POST("/test-push", h.SendTestPush)

	w := do(r, http.MethodPut, "/api/v1/notifications/token", `{"token":"tok-1"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok-1", svc.gotToken)

	w = do(r, http.MethodPost, "/api/v1/notifications/test-push", `{"token":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v1/notifications/test-push", `{"token":"tok-2"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	svc.pushResult = models.ChannelResult{Channel: models.ChannelPush, Error: "unregistered"}
	w = do(r, http.MethodPost, "/api/v1/notifications/test-push", `{"token":"tok-3"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, utils.StatusFailed, decode(t, w).Status)
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("refused") })

	r := gin.New()
	r.GET("/health", NewHealthHandler("1.0.0", map[string]Pinger{"mongodb": ok}).Health)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code)

	r = gin.New()
	r.GET("/health", NewHealthHandler("1.0.0", map[string]Pinger{"mongodb": ok, "redis": down}).Health)
	w := do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"unavailable"`)
}
