package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials signals wrong email or password.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	// ErrWeakPassword signals password doesn't meet requirements.
	ErrWeakPassword = errors.New("identity: password must be at least 8 characters")
	// ErrMissingFields signals blank signup fields.
	ErrMissingFields = errors.New("identity: username and email are required")
)

// Service handles account business logic.
type Service struct {
	repo      Repository
	jwtSecret []byte
}

// LoginResult bundles the token and redacted user returned after a
// successful login.
type LoginResult struct {
	Token string
	User  User
}

// NewService creates a new identity service.
func NewService(repo Repository, jwtSecret string) *Service {
	return &Service{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
	}
}

// Register creates a new user account. Username and email collisions are
// exact, case-sensitive matches.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, error) {
	if len(req.Password) < 8 {
		return User{}, ErrWeakPassword
	}
	if req.Username == "" || req.Email == "" {
		return User{}, ErrMissingFields
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("identity: hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, CreateUserParams{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(passwordHash),
		Role:         RoleUser,
	})
	if err != nil {
		return User{}, err
	}

	return user.Redacted(), nil
}

// Authenticate verifies the email/password pair and returns the redacted
// user. bcrypt comparison is constant-time for equal-length hashes, so the
// credential check does not leak timing information.
func (s *Service) Authenticate(ctx context.Context, req LoginRequest) (User, error) {
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	return user.Redacted(), nil
}

// Login authenticates a user and returns a signed JWT alongside the user.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	user, err := s.Authenticate(ctx, req)
	if err != nil {
		return LoginResult{}, err
	}

	token, err := s.generateToken(user.ID, user.Role)
	if err != nil {
		return LoginResult{}, fmt.Errorf("identity: generate token: %w", err)
	}

	return LoginResult{Token: token, User: user}, nil
}

// FindByUsername resolves a username to its account. Used to resolve
// invite-by-username targets; a miss returns ErrUserNotFound.
func (s *Service) FindByUsername(ctx context.Context, username string) (User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return User{}, err
	}
	return user.Redacted(), nil
}

// GetByID retrieves account information by ID.
func (s *Service) GetByID(ctx context.Context, userID int64) (User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	return user.Redacted(), nil
}

// VerifyToken validates a JWT and returns the user ID and role it carries.
func (s *Service) VerifyToken(tokenString string) (int64, Role, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return 0, "", fmt.Errorf("identity: parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, "", fmt.Errorf("identity: invalid token")
	}

	rawID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, "", fmt.Errorf("identity: invalid user_id in token")
	}
	roleStr, ok := claims["role"].(string)
	if !ok {
		return 0, "", fmt.Errorf("identity: invalid role in token")
	}
	role := Role(roleStr)
	if role != RoleUser && role != RoleAdmin {
		return 0, "", fmt.Errorf("identity: invalid role %q in token", roleStr)
	}
	return int64(rawID), role, nil
}

func (s *Service) generateToken(userID int64, role Role) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
