package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"shakti-shield/internal/models"
	"shakti-shield/internal/repositories/interfaces"
	"shakti-shield/internal/utils"
	"shakti-shield/pkg/logger"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers struct {
	users map[primitive.ObjectID]*models.User
}

func (f *fakeUsers) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return u, nil
}

func signToken(t *testing.T, userID string, secret string, exp time.Time) string {
	t.Helper()
	claims := utils.JWTClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "shakti-test",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func authRouter(users UserLookup) *gin.Engine {
	r := gin.New()
	r.Use(AuthRequired(AuthConfig{Secret: testSecret, Issuer: "shakti-test"}, users, logger.NewNop()))
	r.GET("/me", func(c *gin.Context) {
		user, ok := GetAuthUser(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, user)
	})
	return r
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestAuthRequired(t *testing.T) {
	active := &models.User{ID: primitive.NewObjectID(), Name: "Asha", Phone: "+15551230000", IsActive: true}
	inactive := &models.User{ID: primitive.NewObjectID(), Name: "Old", IsActive: false}
	users := &fakeUsers{users: map[primitive.ObjectID]*models.User{active.ID: active, inactive.ID: inactive}}
	router := authRouter(users)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Token abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, active.ID.Hex(), "other", time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, active.ID.Hex(), testSecret, time.Now().Add(-time.Minute)), http.StatusUnauthorized},
		{"bad object id", "Bearer " + signToken(t, "not-an-id", testSecret, time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"unknown user", "Bearer " + signToken(t, primitive.NewObjectID().Hex(), testSecret, time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"inactive user", "Bearer " + signToken(t, inactive.ID.Hex(), testSecret, time.Now().Add(time.Hour)), http.StatusForbidden},
		{"valid", "Bearer " + signToken(t, active.ID.Hex(), testSecret, time.Now().Add(time.Hour)), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				var got models.AuthUser
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, active.ID, got.ID)
				assert.Equal(t, "Asha", got.Name)
			}
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextKeyRequestID))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(HeaderRequestID)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://app.example.com"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryMiddleware(logger.NewNop()))
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, utils.CodeInternalError, errorCode(t, w))
}

func TestRateLimiter(t *testing.T) {
	rl := NewPerMinuteRateLimiter(2, func(c *gin.Context) string { return c.GetHeader("X-Key") })
	r := gin.New()
	r.POST("/sos", rl.Handler(), func(c *gin.Context) { c.Status(http.StatusCreated) })

	send := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/sos", nil)
		req.Header.Set("X-Key", key)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusCreated, send("a").Code)
	assert.Equal(t, http.StatusCreated, send("a").Code)

	w := send("a")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, utils.CodeRateLimited, errorCode(t, w))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// buckets are per key
	assert.Equal(t, http.StatusCreated, send("b").Code)
}

func TestKeyByUserOrIP(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "203.0.113.7:1234"
	assert.Equal(t, "ip:203.0.113.7", KeyByUserOrIP(c))

	id := primitive.NewObjectID()
	c.Set(ContextKeyUserID, id)
	assert.Equal(t, "user:"+id.Hex(), KeyByUserOrIP(c))
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	r := gin.New()
	r.Use(m.Handler())
	r.GET("/api/v1/sos/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/sos/"+primitive.NewObjectID().Hex(), nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	families, err := reg.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "shakti_shield_http_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "path" {
					counts[lp.GetValue()] += metric.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, float64(3), counts["/api/v1/sos/:id"])
	assert.Equal(t, float64(1), counts["unmatched"])
}
