package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims(role string) jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": 42,
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
}

func TestAuthenticate(t *testing.T) {
	var got models.Actor
	handler := Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := ActorFromContext(r.Context())
		require.NoError(t, err)
		got = actor
		w.WriteHeader(http.StatusNoContent)
	}))

	expired := validClaims("organizer")
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	stringID := validClaims("admin")
	stringID["user_id"] = "42"
	noRole := validClaims("organizer")
	delete(noRole, "role")

	tests := []struct {
		name   string
		header string
		status int
		actor  models.Actor
	}{
		{"no header", "", http.StatusUnauthorized, models.Actor{}},
		{"not bearer", "Basic abc", http.StatusUnauthorized, models.Actor{}},
		{"garbage", "Bearer abc", http.StatusUnauthorized, models.Actor{}},
		{"wrong secret", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims("organizer")), http.StatusUnauthorized, models.Actor{}},
		{"wrong method", "Bearer " + sign(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims("organizer")), http.StatusUnauthorized, models.Actor{}},
		{"expired", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired), http.StatusUnauthorized, models.Actor{}},
		{"missing role", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), noRole), http.StatusUnauthorized, models.Actor{}},
		{"valid", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("organizer")), http.StatusNoContent, models.Actor{UserID: 42, Role: models.RoleOrganizer}},
		{"string user id", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), stringID), http.StatusNoContent, models.Actor{UserID: 42, Role: models.RoleAdmin}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = models.Actor{}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.actor, got)
			if tt.status == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestAuthorize(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	handler := Authenticate(testSecret)(Authorize(models.RoleOrganizer, models.RoleAdmin)(ok))

	for role, status := range map[string]int{
		"organizer": http.StatusNoContent,
		"admin":     http.StatusNoContent,
		"player":    http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims(role)))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, status, rec.Code, role)
	}

	// without Authenticate in front
	rec := httptest.NewRecorder()
	Authorize(models.RoleAdmin)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserIDClaim(t *testing.T) {
	for _, bad := range []interface{}{nil, 1.5, "x", 0.0, -3.0, true} {
		_, err := userIDClaim(jwt.MapClaims{"user_id": bad})
		assert.Error(t, err, "%v", bad)
	}
	_, err := userIDClaim(jwt.MapClaims{})
	assert.Error(t, err)

	id, err := userIDClaim(jwt.MapClaims{"user_id": 7.0})
	require.NoError(t, err)
	assert.Equal(t, 7, id)
}
