package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/taskforge/backend/internal/config"
	"github.com/taskforge/backend/internal/db"
	"github.com/taskforge/backend/internal/model"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	minPasswordLength = 8
	maxUsernameLength = 150
	minUsernameLength = 3
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrWrongTokenType     = errors.New("wrong token type")
	ErrUserNotFound       = errors.New("user not found")
	ErrMisconfigured      = errors.New("auth config invalid")
)

// ValidationError carries field-level messages for 400 responses.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

type UserRepo interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByID(ctx context.Context, userID int64) (*model.User, error)
}

type AuthService struct {
	repo       UserRepo
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

type authClaims struct {
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func NewAuthService(repo UserRepo, cfg config.AuthConfig) (*AuthService, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%w: JWT_SECRET is required", ErrMisconfigured)
	}

	accessTTL, err := time.ParseDuration(cfg.JWTAccessTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JWT_ACCESS_TTL", ErrMisconfigured)
	}

	refreshTTL, err := time.ParseDuration(cfg.JWTRefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JWT_REFRESH_TTL", ErrMisconfigured)
	}

	return &AuthService{
		repo:       repo,
		jwtSecret:  []byte(cfg.JWTSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// Register validates the registration request, hashes the password and
// creates the user. The plaintext password is never stored.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.CreateUser(ctx, strings.TrimSpace(req.Username), strings.TrimSpace(req.Email), string(hash))
	if err != nil {
		if isUniqueViolation(err) {
			verr := &ValidationError{}
			verr.add("username", "A user with that username already exists.")
			return nil, verr
		}
		return nil, err
	}

	return user, nil
}

// Login verifies the credentials and returns a signed access/refresh
// pair. Unknown usernames and wrong passwords fail identically so the
// response never discloses whether an account exists.
func (s *AuthService) Login(ctx context.Context, username, password string) (access, refresh string, err error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if db.IsNoRows(err) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", err
	}

	if !user.IsActive {
		return "", "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", "", ErrInvalidCredentials
	}

	access, err = s.signToken(user.ID, user.Username, user.Email, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = s.signToken(user.ID, user.Username, user.Email, TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Authenticate resolves a bearer access token to a live user. Ran on
// every protected request; tokens of users deleted or deactivated after
// issuance are rejected.
func (s *AuthService) Authenticate(ctx context.Context, tokenStr string) (*model.AuthUser, error) {
	claims, err := s.parseToken(tokenStr, TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserNotFound
	}

	return &model.AuthUser{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token stays valid until its own expiry: there is no rotation
// and no revocation list, so the exchange needs no store access.
func (s *AuthService) Refresh(refreshToken string) (string, error) {
	claims, err := s.parseToken(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", err
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return "", ErrInvalidToken
	}

	return s.signToken(userID, claims.Username, claims.Email, TokenTypeAccess, s.accessTTL)
}

func (s *AuthService) signToken(userID int64, username, email, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := authClaims{
		Username:  username,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// parseToken verifies the signature, then the token_type claim, then
// expiry, in that order.
func (s *AuthService) parseToken(tokenStr string, wantType string) (*authClaims, error) {
	claims := &authClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			// Signature checked out and the claims are populated; a
			// mismatched type still takes precedence over expiry.
			if claims.TokenType != wantType {
				return nil, ErrWrongTokenType
			}
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != wantType {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}

func validateRegistration(req model.RegisterRequest) error {
	verr := &ValidationError{}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		verr.add("username", "This field is required.")
	} else if len(username) < minUsernameLength {
		verr.add("username", fmt.Sprintf("Ensure this field has at least %d characters.", minUsernameLength))
	} else if len(username) > maxUsernameLength {
		verr.add("username", fmt.Sprintf("Ensure this field has no more than %d characters.", maxUsernameLength))
	}

	if email := strings.TrimSpace(req.Email); email != "" && !strings.Contains(email, "@") {
		verr.add("email", "Enter a valid email address.")
	}

	if req.Password == "" {
		verr.add("password", "This field is required.")
	} else if len(req.Password) < minPasswordLength {
		verr.add("password", fmt.Sprintf("Ensure this field has at least %d characters.", minPasswordLength))
	} else if req.Password != req.Password2 {
		verr.add("password", "Password fields didn't match.")
	}

	return verr.orNil()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
