package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/authd/internal/auth/http/dto"
	authUseCase "github.com/allisson/authd/internal/auth/usecase"
	"github.com/allisson/authd/internal/httputil"
	customValidation "github.com/allisson/authd/internal/validation"
)

// SignupHandler handles HTTP requests for the two-step account creation flow.
type SignupHandler struct {
	signupUseCase authUseCase.SignupUseCase
	logger        *slog.Logger
}

// NewSignupHandler creates a new signup handler with required dependencies.
func NewSignupHandler(signupUseCase authUseCase.SignupUseCase, logger *slog.Logger) *SignupHandler {
	return &SignupHandler{
		signupUseCase: signupUseCase,
		logger:        logger,
	}
}

// RequestCreationCodeHandler starts a signup and returns the creation token.
// POST /v1/auth/signup/code - No authentication required.
// Returns 201 Created with the creation token, 409 when the email is taken.
func (h *SignupHandler) RequestCreationCodeHandler(c *gin.Context) {
	var req dto.RequestCreationCodeRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input := &authUseCase.RequestCreationCodeInput{
		Email: req.Email,
	}

	output, err := h.signupUseCase.RequestCreationCode(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.CreationCodeResponse{
		CreationToken: output.CreationToken,
	})
}

// CreateAccountHandler completes a signup and issues the initial token pair.
// POST /v1/auth/signup - No authentication required.
// Returns 201 Created with the pair, 422 on a wrong or exhausted code, 401 on
// a bad creation token.
func (h *SignupHandler) CreateAccountHandler(c *gin.Context) {
	var req dto.CreateAccountRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input := &authUseCase.CreateAccountInput{
		CreationToken: req.CreationToken,
		Code:          req.Code,
		Email:         req.Email,
		Password:      req.Password,
	}

	pair, err := h.signupUseCase.CreateAccount(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.NewTokenPairResponse(pair))
}
