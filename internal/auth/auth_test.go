package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

func TestService_IssueValidate(t *testing.T) {
	svc := NewService(testSecret, time.Hour)
	token, err := svc.Issue(" Coach@Club.org ", RoleCoach, "Pat")
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	require.Equal(t, "coach@club.org", claims.Email())
	require.Equal(t, RoleCoach, claims.Role)
	require.Equal(t, "Pat", claims.Name)
}

func TestService_ValidateFailures(t *testing.T) {
	svc := NewService(testSecret, time.Hour)
	good, err := svc.Issue("a@b.com", RoleAdmin, "")
	require.NoError(t, err)

	expired, err := svc.IssueTTL("a@b.com", RoleAdmin, "", -time.Minute)
	require.NoError(t, err)

	other, err := NewService("a-completely-different-secret-value", time.Hour).Issue("a@b.com", RoleAdmin, "")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Role: RoleAdmin}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "empty", token: "", want: ErrMissingToken},
		{name: "garbage", token: "not.a.jwt", want: ErrInvalidToken},
		{name: "expired", token: expired, want: ErrExpiredToken},
		{name: "wrong secret", token: other, want: ErrInvalidSignature},
		{name: "alg none", token: none, want: ErrInvalidSignature},
		{name: "tampered", token: good[:len(good)-2] + "xx", want: ErrInvalidSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Validate(tt.token)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestService_IssueRejectsUnknownRole(t *testing.T) {
	_, err := NewService(testSecret, time.Hour).Issue("a@b.com", Role("owner"), "")
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Admin ")
	require.NoError(t, err)
	require.Equal(t, RoleAdmin, r)

	_, err = ParseRole("superuser")
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestRequire(t *testing.T) {
	svc := NewService(testSecret, time.Hour)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, found := FromContext(r.Context())
		require.True(t, found)
		w.Write([]byte(c.Email()))
	})
	h := svc.Authenticate(Require(RoleAdmin)(ok))

	admin, _ := svc.Issue("admin@club.org", RoleAdmin, "")
	parent, _ := svc.Issue("p@club.org", RoleParent, "")
	expired, _ := svc.IssueTTL("admin@club.org", RoleAdmin, "", -time.Second)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{name: "no token", wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHENTICATED"},
		{name: "basic scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHENTICATED"},
		{name: "bad token", header: "Bearer nope", wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHENTICATED"},
		{name: "expired", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHENTICATED"},
		{name: "wrong role", header: "Bearer " + parent, wantStatus: http.StatusForbidden, wantCode: "FORBIDDEN"},
		{name: "admin", header: "bearer " + admin, wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode == "" {
				require.Equal(t, "admin@club.org", rec.Body.String())
				return
			}
			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			require.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
}

func TestAuthenticate_AnonymousPassesThrough(t *testing.T) {
	svc := NewService(testSecret, time.Hour)
	var sawClaims bool
	h := svc.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawClaims = FromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, sawClaims)
}
