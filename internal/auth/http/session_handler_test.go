package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/authd/internal/auth/domain"
	authUseCase "github.com/allisson/authd/internal/auth/usecase"
	apperrors "github.com/allisson/authd/internal/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeSessionUseCase scripts the outcome per operation.
type fakeSessionUseCase struct {
	loginPair    *authDomain.TokenPair
	loginErr     error
	loginInput   *authUseCase.LoginInput
	refreshPair  *authDomain.TokenPair
	refreshErr   error
	refreshToken string
	authClaims   *authDomain.Claims
	authErr      error
	logoutErr    error
	logoutUserID uuid.UUID
}

func (f *fakeSessionUseCase) Login(ctx context.Context, input *authUseCase.LoginInput) (*authDomain.TokenPair, error) {
	f.loginInput = input
	return f.loginPair, f.loginErr
}

func (f *fakeSessionUseCase) Refresh(ctx context.Context, refreshToken string) (*authDomain.TokenPair, error) {
	f.refreshToken = refreshToken
	return f.refreshPair, f.refreshErr
}

func (f *fakeSessionUseCase) Authenticate(accessToken string) (*authDomain.Claims, error) {
	return f.authClaims, f.authErr
}

func (f *fakeSessionUseCase) LogoutEverywhere(ctx context.Context, userID uuid.UUID) error {
	f.logoutUserID = userID
	return f.logoutErr
}

func performJSON(router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestLoginHandler(t *testing.T) {
	useCase := &fakeSessionUseCase{
		loginPair: &authDomain.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"},
	}
	handler := NewSessionHandler(useCase, testLogger())

	router := gin.New()
	router.POST("/v1/auth/login", handler.LoginHandler)

	recorder := performJSON(router, http.MethodPost, "/v1/auth/login", gin.H{
		"email":    "a@example.com",
		"password": "secret-password",
	}, nil)

	require.Equal(t, http.StatusOK, recorder.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "access-1", response["access_token"])
	assert.Equal(t, "refresh-1", response["refresh_token"])

	require.NotNil(t, useCase.loginInput)
	assert.Equal(t, "a@example.com", useCase.loginInput.Email)
	assert.NotEmpty(t, useCase.loginInput.ClientIP)
}

func TestLoginHandlerInvalidCredentials(t *testing.T) {
	useCase := &fakeSessionUseCase{loginErr: authDomain.ErrInvalidCredentials}
	handler := NewSessionHandler(useCase, testLogger())

	router := gin.New()
	router.POST("/v1/auth/login", handler.LoginHandler)

	recorder := performJSON(router, http.MethodPost, "/v1/auth/login", gin.H{
		"email":    "a@example.com",
		"password": "wrong",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestLoginHandlerThrottled(t *testing.T) {
	useCase := &fakeSessionUseCase{loginErr: apperrors.NewRateLimitError(10 * time.Minute)}
	handler := NewSessionHandler(useCase, testLogger())

	router := gin.New()
	router.POST("/v1/auth/login", handler.LoginHandler)

	recorder := performJSON(router, http.MethodPost, "/v1/auth/login", gin.H{
		"email":    "a@example.com",
		"password": "secret-password",
	}, nil)

	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.Equal(t, "600", recorder.Header().Get("Retry-After"))
	assert.Contains(t, recorder.Body.String(), "10 minutes")
}

func TestLoginHandlerValidation(t *testing.T) {
	handler := NewSessionHandler(&fakeSessionUseCase{}, testLogger())

	router := gin.New()
	router.POST("/v1/auth/login", handler.LoginHandler)

	recorder := performJSON(router, http.MethodPost, "/v1/auth/login", gin.H{
		"email": "a@example.com",
	}, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
}

func TestRefreshHandler(t *testing.T) {
	useCase := &fakeSessionUseCase{
		refreshPair: &authDomain.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"},
	}
	handler := NewSessionHandler(useCase, testLogger())

	router := gin.New()
	router.POST("/v1/auth/refresh", handler.RefreshHandler)

	recorder := performJSON(router, http.MethodPost, "/v1/auth/refresh", gin.H{
		"refresh_token": "refresh-1",
	}, nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "refresh-1", useCase.refreshToken)

	var response map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "refresh-2", response["refresh_token"])
}

func TestRefreshHandlerReuseDetected(t *testing.T) {
	useCase := &fakeSessionUseCase{refreshErr: authDomain.ErrTokenReuse}
	handler := NewSessionHandler(useCase, testLogger())

	router := gin.New()
	router.POST("/v1/auth/refresh", handler.RefreshHandler)

	recorder := performJSON(router, http.MethodPost, "/v1/auth/refresh", gin.H{
		"refresh_token": "replayed",
	}, nil)

	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestRefreshHandlerRevoked(t *testing.T) {
	useCase := &fakeSessionUseCase{refreshErr: authDomain.ErrSessionRevoked}
	handler := NewSessionHandler(useCase, testLogger())

	router := gin.New()
	router.POST("/v1/auth/refresh", handler.RefreshHandler)

	recorder := performJSON(router, http.MethodPost, "/v1/auth/refresh", gin.H{
		"refresh_token": "old-version",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestLogoutEverywhereHandler(t *testing.T) {
	userID := uuid.Must(uuid.NewV7())
	useCase := &fakeSessionUseCase{
		authClaims: &authDomain.Claims{
			TokenType: authDomain.AccessToken,
			Role:      authDomain.MemberRole,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject: userID.String(),
			},
		},
	}
	handler := NewSessionHandler(useCase, testLogger())

	router := gin.New()
	router.POST("/v1/auth/logout_all",
		AuthenticationMiddleware(useCase, testLogger()),
		handler.LogoutEverywhereHandler,
	)

	recorder := performJSON(router, http.MethodPost, "/v1/auth/logout_all", nil, map[string]string{
		"Authorization": "Bearer some-access-token",
	})

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, userID, useCase.logoutUserID)
}

func TestLogoutEverywhereHandlerWithoutAuth(t *testing.T) {
	useCase := &fakeSessionUseCase{authErr: authDomain.ErrInvalidToken}
	handler := NewSessionHandler(useCase, testLogger())

	router := gin.New()
	router.POST("/v1/auth/logout_all",
		AuthenticationMiddleware(useCase, testLogger()),
		handler.LogoutEverywhereHandler,
	)

	recorder := performJSON(router, http.MethodPost, "/v1/auth/logout_all", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
