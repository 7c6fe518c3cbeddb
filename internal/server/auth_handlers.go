package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer   = "yatube-api"
	tokenAudience = "yatube-client"
	tokenTTL      = 24 * time.Hour

	blacklistPrefix = "jwt:blacklist:"
)

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *Server) generateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      fmt.Sprintf("%d", user.ID),
		"username": user.Username,
		"iss":      tokenIssuer,
		"aud":      tokenAudience,
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      now.Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// Signup registers a new account and returns a session token.
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body signupRequest true "account fields"
// @Success 201 {object} authResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("invalid request body", err))
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	switch {
	case !validation.ValidUsername(req.Username):
		return respondError(c, models.NewValidationError("invalid username", nil))
	case !validation.ValidEmail(req.Email):
		return respondError(c, models.NewValidationError("invalid email", nil))
	case !validation.ValidPassword(req.Password):
		return respondError(c, models.NewValidationError(
			"password must be at least 8 characters with a letter and a digit", nil))
	}

	existing, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return respondError(c, err)
	}
	if existing != nil {
		return respondError(c, models.NewValidationError("email already registered", nil))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return respondError(c, models.NewInternalError("failed to hash password", err))
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashed),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return respondError(c, err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return respondError(c, models.NewInternalError("failed to issue token", err))
	}

	middleware.Logger.InfoContext(ctx, "user registered",
		slog.String("username", user.Username))
	return c.Status(fiber.StatusCreated).JSON(authResponse{Token: token, User: user})
}

// Login exchanges credentials for a session token.
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "credentials"
// @Success 200 {object} authResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("invalid request body", err))
	}

	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		return respondError(c, err)
	}
	if user == nil {
		return respondError(c, models.NewUnauthorizedError("invalid credentials", nil))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return respondError(c, models.NewUnauthorizedError("invalid credentials", nil))
	}

	token, err := s.generateToken(user)
	if err != nil {
		return respondError(c, models.NewInternalError("failed to issue token", err))
	}
	return c.JSON(authResponse{Token: token, User: user})
}

// Logout revokes the presented token by blacklisting its ID for the rest of
// its lifetime.
// @Summary Log out
// @Tags auth
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()

	jti, _ := c.Locals("tokenJTI").(string)
	exp, _ := c.Locals("tokenExp").(time.Time)
	if jti != "" && s.cache.Available() {
		ttl := time.Until(exp)
		if ttl > 0 {
			if err := s.cache.Client().Set(ctx, blacklistPrefix+jti, "1", ttl).Err(); err != nil {
				middleware.Logger.WarnContext(ctx, "token blacklist write failed",
					slog.String("error", err.Error()))
			}
		}
	}
	return c.JSON(fiber.Map{"status": "logged out"})
}

func (s *Server) parseToken(c *fiber.Ctx, tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithAudience(tokenAudience))
	if err != nil || !token.Valid {
		return 0, models.NewUnauthorizedError("invalid or expired token", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, models.NewUnauthorizedError("invalid token claims", nil)
	}

	jti, _ := claims["jti"].(string)
	if jti != "" && s.cache.Available() {
		if n, _ := s.cache.Client().Exists(c.UserContext(), blacklistPrefix+jti).Result(); n > 0 {
			return 0, models.NewUnauthorizedError("token revoked", nil)
		}
	}

	sub, _ := claims["sub"].(string)
	var id uint
	if _, err := fmt.Sscanf(sub, "%d", &id); err != nil || id == 0 {
		return 0, models.NewUnauthorizedError("invalid token subject", err)
	}

	c.Locals("tokenJTI", jti)
	if exp, expErr := claims.GetExpirationTime(); expErr == nil && exp != nil {
		c.Locals("tokenExp", exp.Time)
	}
	if username, ok := claims["username"].(string); ok {
		c.Locals("username", username)
	}
	return id, nil
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// AuthRequired guards a route with Bearer token authentication. On success
// the user's ID lands in c.Locals("userID") and in the request context for
// logging.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			return respondError(c, models.NewUnauthorizedError("missing bearer token", nil))
		}

		id, err := s.parseToken(c, tokenString)
		if err != nil {
			return respondError(c, err)
		}

		c.Locals("userID", id)
		// Late enough that ContextMiddleware has run; add the user to the
		// logging context by hand.
		c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, id))
		return c.Next()
	}
}

// optionalUserID resolves the viewer's ID when a valid token is presented,
// and zero otherwise. Public pages use it to personalize without requiring
// login.
func (s *Server) optionalUserID(c *fiber.Ctx) uint {
	tokenString := bearerToken(c)
	if tokenString == "" {
		return 0
	}
	id, err := s.parseToken(c, tokenString)
	if err != nil {
		return 0
	}
	return id
}
