package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"sitestats/api/middleware"
	"sitestats/api/models"
	"sitestats/api/store"
	"sitestats/api/utils"
)

// OperatorStore persists dashboard operators.
type OperatorStore interface {
	CreateOperator(ctx context.Context, email string, hashedPassword []byte) (*models.Operator, error)
	GetOperatorByEmail(ctx context.Context, email string) (*models.Operator, error)
}

type AuthHandlers struct {
	Operators     OperatorStore
	Tokens        *utils.TokenIssuer
	SecureCookies bool
	logger        *logrus.Logger
}

func NewAuthHandlers(operators OperatorStore, tokens *utils.TokenIssuer, secureCookies bool, logger *logrus.Logger) *AuthHandlers {
	return &AuthHandlers{
		Operators:     operators,
		Tokens:        tokens,
		SecureCookies: secureCookies,
		logger:        logger,
	}
}

func (h *AuthHandlers) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidData, err.Error())
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.WithError(err).Error("hashing operator password failed")
		respondError(c, http.StatusInternalServerError, CodeInternal, "failed to process password")
		return
	}

	// the unique index on email settles concurrent signups
	op, err := h.Operators.CreateOperator(c.Request.Context(), req.Email, hashedPassword)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			respondError(c, http.StatusConflict, CodeConflict, "operator with this email already exists")
			return
		}
		h.logger.WithError(err).WithField("email", req.Email).Error("creating operator failed")
		respondError(c, http.StatusInternalServerError, CodeInternal, "failed to register operator")
		return
	}

	h.logger.WithFields(logrus.Fields{"operator_id": op.ID, "email": op.Email}).Info("operator registered")
	respondData(c, http.StatusCreated, gin.H{"email": op.Email})
}

// Login checks credentials and issues the session cookie.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidData, err.Error())
		return
	}

	op, err := h.Operators.GetOperatorByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.logger.WithError(err).Error("loading operator failed")
			respondError(c, http.StatusInternalServerError, CodeInternal, "failed to check credentials")
			return
		}
		respondError(c, http.StatusUnauthorized, CodeUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword(op.HashedPassword, []byte(req.Password)); err != nil {
		h.logger.WithField("email", req.Email).Debug("login rejected: password mismatch")
		respondError(c, http.StatusUnauthorized, CodeUnauthorized, "invalid credentials")
		return
	}

	token, err := h.Tokens.Generate(op)
	if err != nil {
		h.logger.WithError(err).WithField("operator_id", op.ID).Error("signing token failed")
		respondError(c, http.StatusInternalServerError, CodeInternal, "failed to generate authentication token")
		return
	}

	c.SetCookie(middleware.TokenCookie, token, int(h.Tokens.Lifetime().Seconds()), "/", "", h.SecureCookies, true)

	h.logger.WithField("operator_id", op.ID).Info("operator logged in")
	respondData(c, http.StatusOK, gin.H{"email": op.Email, "token": token})
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.SecureCookies, true)
	respondData(c, http.StatusOK, gin.H{"success": true})
}
