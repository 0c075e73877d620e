package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/pawmart/backend/services/common/auth"
	apperrors "github.com/yashrajoria/pawmart/backend/services/common/errors"
	"github.com/yashrajoria/pawmart/backend/services/storefront/middleware"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
	"github.com/yashrajoria/pawmart/backend/services/storefront/services"
)

const refreshCookie = "refresh_token"

type AuthAPI interface {
	SignUp(ctx context.Context, req services.SignUpRequest) (*services.AuthResult, error)
	SignIn(ctx context.Context, req services.SignInRequest) (*services.AuthResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req services.ResetPasswordRequest) error
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	CurrentUser(ctx context.Context, userID string) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) (*models.UserProfile, error)
	DeleteAccount(ctx context.Context, userID string) error
	Logout(ctx context.Context, userID string)
}

type AuthController struct {
	service       AuthAPI
	secureCookies bool
	refreshMaxAge int
}

func NewAuthController(service AuthAPI, secureCookies bool) *AuthController {
	return &AuthController{
		service:       service,
		secureCookies: secureCookies,
		refreshMaxAge: int(auth.DefaultRefreshTTL.Seconds()),
	}
}

func (ac *AuthController) setTokenCookies(c *gin.Context, tokens *auth.TokenPair) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, tokens.AccessToken, int(tokens.ExpiresIn), "/", "", ac.secureCookies, true)
	c.SetCookie(refreshCookie, tokens.RefreshToken, ac.refreshMaxAge, "/", "", ac.secureCookies, true)
}

func (ac *AuthController) clearTokenCookies(c *gin.Context) {
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", ac.secureCookies, true)
	c.SetCookie(refreshCookie, "", -1, "/", "", ac.secureCookies, true)
}

func (ac *AuthController) SignUp(c *gin.Context) {
	var req services.SignUpRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := ac.service.SignUp(c.Request.Context(), req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	ac.setTokenCookies(c, res.Tokens)
	c.JSON(http.StatusCreated, res)
}

func (ac *AuthController) SignIn(c *gin.Context) {
	var req services.SignInRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := ac.service.SignIn(c.Request.Context(), req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	ac.setTokenCookies(c, res.Tokens)
	c.JSON(http.StatusOK, res)
}

// Refresh accepts the refresh token from the body or the refresh cookie.
func (ac *AuthController) Refresh(c *gin.Context) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = c.ShouldBindJSON(&body)
	token := body.RefreshToken
	if token == "" {
		token, _ = c.Cookie(refreshCookie)
	}
	if token == "" {
		apperrors.Respond(c, apperrors.Unauthorized("Refresh token not found"))
		return
	}

	tokens, err := ac.service.Refresh(c.Request.Context(), token)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	ac.setTokenCookies(c, tokens)
	c.JSON(http.StatusOK, tokens)
}

func (ac *AuthController) ForgotPassword(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
	}
	if !bindJSON(c, &body) {
		return
	}
	if err := ac.service.RequestPasswordReset(c.Request.Context(), body.Email); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the email is registered, a reset code has been sent"})
}

func (ac *AuthController) ResetPassword(c *gin.Context) {
	var req services.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := ac.service.ResetPassword(c.Request.Context(), req); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

func (ac *AuthController) Me(c *gin.Context) {
	profile, err := ac.service.CurrentUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (ac *AuthController) UpdateProfile(c *gin.Context) {
	var patch models.ProfilePatch
	if !bindJSON(c, &patch) {
		return
	}
	profile, err := ac.service.UpdateProfile(c.Request.Context(), middleware.UserID(c), patch)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Logout clears the cart of a signed-in caller and always drops the cookies.
func (ac *AuthController) Logout(c *gin.Context) {
	if userID := middleware.UserID(c); userID != "" {
		ac.service.Logout(c.Request.Context(), userID)
	}
	ac.clearTokenCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (ac *AuthController) DeleteAccount(c *gin.Context) {
	if err := ac.service.DeleteAccount(c.Request.Context(), middleware.UserID(c)); err != nil {
		apperrors.Respond(c, err)
		return
	}
	ac.clearTokenCookies(c)
	c.Status(http.StatusNoContent)
}
