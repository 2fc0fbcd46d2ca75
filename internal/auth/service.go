package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/legaldrishti/backend/internal/config"
	"github.com/legaldrishti/backend/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserDisabled       = errors.New("user account is disabled")
	ErrValidation         = errors.New("validation failed")
)

// Service issues credentials and owns the users table plus the role-specific
// profile tables.
type Service struct {
	pool *pgxpool.Pool
	cfg  config.AuthConfig
	now  func() time.Time
}

func NewService(pool *pgxpool.Pool, cfg config.AuthConfig) *Service {
	return &Service{pool: pool, cfg: cfg, now: time.Now}
}

// TokenPair is what login and refresh hand back.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
}

// LawyerProfileInput carries the extra fields a lawyer registration needs.
type LawyerProfileInput struct {
	BarRegistrationNumber string
	PracticeAreas         string
	YearsOfExperience     int
	CourtOfPractice       string
	City                  string
	State                 string
}

type FirmProfileInput struct {
	FirmName           string
	RegistrationNumber string
	FirmSize           int
	Website            string
	Address            string
	City               string
	State              string
}

const userColumns = `id, email, password_hash, role, full_name, phone, is_active, is_verified,
	last_login, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.FullName, &u.Phone,
		&u.IsActive, &u.IsVerified, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Register creates a plain user account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.createUser(ctx, in, models.RoleUser)
}

// RegisterInternal creates an internal-team operator account. The handler
// layer restricts this to admins.
func (s *Service) RegisterInternal(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.createUser(ctx, in, models.RoleInternalTeam)
}

// RegisterLawyer creates the account and its lawyer profile together.
func (s *Service) RegisterLawyer(ctx context.Context, in RegisterInput, profile LawyerProfileInput) (*models.User, error) {
	user, err := s.createUser(ctx, in, models.RoleLawyer)
	if err != nil {
		return nil, err
	}

	now := s.now()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO lawyer_profiles (id, user_id, bar_registration_number, practice_areas,
			years_of_experience, court_of_practice, city, state, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		uuid.New(), user.ID, profile.BarRegistrationNumber, profile.PracticeAreas,
		profile.YearsOfExperience, profile.CourtOfPractice, profile.City, profile.State, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert lawyer profile: %w", err)
	}
	return user, nil
}

// RegisterFirm creates the account and its firm profile together.
func (s *Service) RegisterFirm(ctx context.Context, in RegisterInput, profile FirmProfileInput) (*models.User, error) {
	user, err := s.createUser(ctx, in, models.RoleFirm)
	if err != nil {
		return nil, err
	}

	now := s.now()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO firm_profiles (id, user_id, firm_name, registration_number, firm_size,
			website, address, city, state, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		uuid.New(), user.ID, profile.FirmName, profile.RegistrationNumber, profile.FirmSize,
		profile.Website, profile.Address, profile.City, profile.State, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert firm profile: %w", err)
	}
	return user, nil
}

func (s *Service) createUser(ctx context.Context, in RegisterInput, role models.Role) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email %q: %w", in.Email, ErrValidation)
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters: %w", ErrValidation)
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email=$1)`, email).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		FullName:     in.FullName,
		Phone:        in.Phone,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, role, full_name, phone, is_active, is_verified, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		user.ID, user.Email, user.PasswordHash, user.Role, user.FullName, user.Phone,
		user.IsActive, user.IsVerified, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// Login verifies the password and issues a token pair, stamping last_login.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, nil, ErrUserDisabled
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}

	now := s.now()
	if _, err := s.pool.Exec(ctx, `UPDATE users SET last_login=$2, updated_at=$2 WHERE id=$1`, user.ID, now); err != nil {
		slog.Warn("last_login not updated", "user_id", user.ID, "error", err)
	}
	user.LastLogin = &now

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// Refresh exchanges a valid refresh token for a fresh pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.parseToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != "refresh" {
		return nil, fmt.Errorf("not a refresh token: %w", ErrInvalidToken)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject: %w", ErrInvalidToken)
	}
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}
	return s.issueTokens(user)
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// SeedAdmin creates the admin account on first boot. A configured password
// is required; without one the seed is skipped.
func (s *Service) SeedAdmin(ctx context.Context) error {
	if s.cfg.AdminPassword == "" {
		slog.Warn("admin seeding skipped, ADMIN_PASSWORD not set")
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email=$1)`, s.cfg.AdminEmail).Scan(&exists); err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if exists {
		return nil
	}

	user, err := s.createUser(ctx, RegisterInput{
		Email:    s.cfg.AdminEmail,
		Password: s.cfg.AdminPassword,
		FullName: "Administrator",
	}, models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	slog.Info("admin account created", "user_id", user.ID, "email", user.Email)
	return nil
}

// Claims is the JWT payload for both token types; TokenType distinguishes
// access from refresh.
type Claims struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func (s *Service) issueTokens(user *models.User) (*TokenPair, error) {
	now := s.now()

	access, err := s.signToken(user, "access", now, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.signToken(user, "refresh", now, s.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(s.cfg.AccessTTL.Seconds()),
	}, nil
}

func (s *Service) signToken(user *models.User, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		Email:     user.Email,
		Role:      string(user.Role),
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

func (s *Service) parseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
