package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tablesidehq/tableside-backend/pkg/auth"
	"github.com/tablesidehq/tableside-backend/pkg/config"
	pkgerrors "github.com/tablesidehq/tableside-backend/pkg/errors"
	"github.com/tablesidehq/tableside-backend/pkg/logger"
	"github.com/tablesidehq/tableside-backend/pkg/security"
)

type sessionClearer interface {
	ClearAll(ctx context.Context, sessionID string) error
}

// LoginDTO carries the staff login form.
type LoginDTO struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult returns the minted token and its expiry.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service authenticates the single staff account. Guest flows never touch
// this; only the table-management endpoints require a token.
type Service interface {
	Login(ctx context.Context, dto LoginDTO) (*LoginResult, error)
	ResetGuestSession(ctx context.Context, sessionID string) error
}

type service struct {
	adminCfg config.AdminConfig
	jwtCfg   config.JWTConfig
	sessions sessionClearer
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the staff auth service.
func NewService(adminCfg config.AdminConfig, jwtCfg config.JWTConfig, sessions sessionClearer, logg *logger.Logger) (Service, error) {
	if adminCfg.PasswordHash == "" {
		return nil, fmt.Errorf("admin password hash is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		adminCfg: adminCfg,
		jwtCfg:   jwtCfg,
		sessions: sessions,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Login(ctx context.Context, dto LoginDTO) (*LoginResult, error) {
	username := strings.TrimSpace(dto.Username)
	if username == "" || dto.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username and password are required")
	}

	// A wrong username still runs the hash comparison path so both
	// failure modes take comparable time.
	match, err := security.VerifyPassword(dto.Password, s.adminCfg.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify credentials")
	}
	if username != s.adminCfg.Username || !match {
		if s.logg != nil {
			s.logg.Warn(ctx, "auth.login_rejected")
		}
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	now := s.now()
	token, err := auth.MintAccessToken(s.jwtCfg, now, auth.AccessTokenPayload{Username: username})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token")
	}

	if s.logg != nil {
		s.logg.Info(ctx, "auth.login")
	}
	return &LoginResult{
		Token:     token,
		ExpiresAt: now.Add(s.jwtCfg.AccessTokenTTL()),
	}, nil
}

// ResetGuestSession wipes every per-guest key for the given session id.
// Staff use it to hand a table's device to the next guest.
func (s *service) ResetGuestSession(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if err := s.sessions.ClearAll(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear guest session")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithSessionID(ctx, sessionID), "auth.guest_session_reset")
	}
	return nil
}
