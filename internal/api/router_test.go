package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	mw "github.com/brandlens/brandlens/internal/api/middleware"
	"github.com/brandlens/brandlens/pkg/models"
)

type stubKeyStore struct {
	keys []*models.APIKey
}

func (s *stubKeyStore) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	var out []*models.APIKey
	for _, k := range s.keys {
		if k.KeyPrefix == prefix {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *stubKeyStore) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }

type stubLimiter struct{ count int64 }

func (l *stubLimiter) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	l.count++
	return l.count, nil
}

func newTestRouter(t *testing.T, deps Dependencies, rawKeys map[string][]string) http.Handler {
	t.Helper()
	ks := &stubKeyStore{}
	for raw, scopes := range rawKeys {
		hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.MinCost)
		require.NoError(t, err)
		ks.keys = append(ks.keys, &models.APIKey{
			ID:        uuid.New(),
			KeyHash:   string(hash),
			KeyPrefix: raw[:8],
			Scopes:    scopes,
		})
	}
	deps.Auth = mw.NewAuth(ks)
	deps.RateLimit = mw.NewRateLimit(&stubLimiter{}, 100)
	return NewRouter(deps)
}

func TestRouter_HealthIsPublic(t *testing.T) {
	called := false
	router := newTestRouter(t, Dependencies{
		HealthHandler: func(w http.ResponseWriter, _ *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		},
	}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestRouter_MetricsIsPublic(t *testing.T) {
	router := newTestRouter(t, Dependencies{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_PublicReportAllowsAnyOrigin(t *testing.T) {
	router := newTestRouter(t, Dependencies{
		PublicReportHandler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/feedface", nil)
	req.Header.Set("Origin", "https://share.example.com")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_ProjectsRequireAuth(t *testing.T) {
	router := newTestRouter(t, Dependencies{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/projects", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_AuthenticatedUnwiredRouteIs501(t *testing.T) {
	raw := "bl_testkey123456"
	router := newTestRouter(t, Dependencies{}, map[string][]string{raw: {"analyze"}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestRouter_AdminRoutesRequireAdminScope(t *testing.T) {
	analyst := "bl_analyst123456"
	admin := "bl_admin98765432"
	router := newTestRouter(t, Dependencies{
		ListKeysHandler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	}, map[string][]string{
		analyst: {"analyze"},
		admin:   {"analyze", "admin"},
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/keys", nil)
	req.Header.Set("Authorization", "Bearer "+analyst)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/keys", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
