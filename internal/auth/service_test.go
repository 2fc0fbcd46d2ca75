package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/legaldrishti/backend/internal/config"
	"github.com/legaldrishti/backend/internal/models"
)

func testService() *Service {
	return NewService(nil, config.AuthConfig{
		JWTSecret:  "test-secret",
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	})
}

func TestTokenRoundTrip(t *testing.T) {
	s := testService()
	user := &models.User{
		ID:    uuid.New(),
		Email: "lawyer@example.com",
		Role:  models.RoleLawyer,
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		t.Fatalf("issueTokens: %v", err)
	}
	if pair.TokenType != "bearer" || pair.ExpiresIn != 1800 {
		t.Errorf("pair = %+v", pair)
	}

	claims, err := s.parseToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.TokenType != "access" {
		t.Errorf("token type = %q, want access", claims.TokenType)
	}
	if claims.Subject != user.ID.String() || claims.Email != user.Email || claims.Role != "lawyer" {
		t.Errorf("claims = %+v", claims)
	}

	refresh, err := s.parseToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("parse refresh token: %v", err)
	}
	if refresh.TokenType != "refresh" {
		t.Errorf("refresh token type = %q", refresh.TokenType)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	s := testService()
	user := &models.User{ID: uuid.New(), Email: "x@example.com", Role: models.RoleUser}
	pair, err := s.issueTokens(user)
	if err != nil {
		t.Fatalf("issueTokens: %v", err)
	}

	other := NewService(nil, config.AuthConfig{JWTSecret: "different", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	if _, err := other.parseToken(pair.AccessToken); err == nil {
		t.Fatal("token signed with a different secret was accepted")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	s := testService()
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	user := &models.User{ID: uuid.New(), Email: "x@example.com", Role: models.RoleUser}

	pair, err := s.issueTokens(user)
	if err != nil {
		t.Fatalf("issueTokens: %v", err)
	}
	if _, err := s.parseToken(pair.AccessToken); err == nil {
		t.Fatal("expired token was accepted")
	}
}
