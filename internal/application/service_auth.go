package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopfront/storefront/internal/ports"
)

const idempotencyStatusCompleted = "COMPLETED"

// Register creates a shopper account, emits user.registered in the same transaction and
// signs the new user in. A replayed Idempotency-Key returns the stored account with a
// fresh session instead of creating a second one.
func (s *Service) Register(ctx context.Context, req RegisterRequest, idempotencyKey string) (AuthResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validateRequest(req); err != nil {
		return AuthResponse{}, err
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return AuthResponse{}, err
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return AuthResponse{}, err
	}
	name := strings.TrimSpace(req.Name)

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey != "" {
		requestHash := hashRequest(req)
		existing, err := s.idempotency.Get(ctx, idempotencyKey)
		if err != nil {
			return AuthResponse{}, fmt.Errorf("load idempotency key: %w", err)
		}
		if existing != nil {
			return s.replayRegister(ctx, *existing, requestHash, req)
		}
		if err := s.idempotency.Reserve(ctx, idempotencyKey, requestHash, s.nowFn().Add(s.cfg.IdempotencyTTL)); err != nil {
			return AuthResponse{}, fmt.Errorf("%w: %v", domain.ErrIdempotencyConflict, err)
		}
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("hash password: %w", err)
	}

	role := domain.RoleCustomer
	if _, ok := s.adminEmails[email]; ok {
		role = domain.RoleAdmin
	}

	now := s.nowFn()
	payload, _ := json.Marshal(map[string]any{
		"name":          name,
		"email":         email,
		"role":          role,
		"registered_at": now,
	})
	user, err := s.users.CreateWithOutboxTx(ctx, ports.CreateUserTxParams{
		Name:            name,
		Email:           email,
		PasswordHash:    passwordHash,
		Role:            role,
		RegisteredAtUTC: now,
	}, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    EventTypeUserRegistered,
		PartitionKey: email,
		Payload:      payload,
		OccurredAt:   now,
	})
	if err != nil {
		return AuthResponse{}, err
	}

	if idempotencyKey != "" {
		body, _ := json.Marshal(toUserView(user))
		if err := s.idempotency.Complete(ctx, idempotencyKey, 201, body, s.nowFn()); err != nil {
			logWarn(ctx, "register", "failed to complete idempotency record", "error", err)
		}
	}

	return s.issueSession(ctx, user, req.IPAddress, req.UserAgent)
}

func (s *Service) replayRegister(ctx context.Context, record ports.IdempotencyRecord, requestHash string, req RegisterRequest) (AuthResponse, error) {
	if record.RequestHash != requestHash {
		return AuthResponse{}, fmt.Errorf("%w: key reused with a different request", domain.ErrIdempotencyConflict)
	}
	if record.Status != idempotencyStatusCompleted {
		return AuthResponse{}, fmt.Errorf("%w: request still in progress", domain.ErrIdempotencyConflict)
	}
	var stored UserView
	if err := json.Unmarshal(record.ResponseBody, &stored); err != nil {
		return AuthResponse{}, fmt.Errorf("decode idempotent response: %w", err)
	}
	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return AuthResponse{}, err
	}
	return s.issueSession(ctx, user, req.IPAddress, req.UserAgent)
}

// Login validates credentials, enforces lockout, and issues a session token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (AuthResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validateRequest(req); err != nil {
		return AuthResponse{}, err
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return AuthResponse{}, err
	}

	lockKey := "login:" + email
	lockState, err := s.lockouts.Get(ctx, lockKey)
	if err == nil && lockState.LockedUntil != nil && lockState.LockedUntil.After(s.nowFn()) {
		logWarn(ctx, "login", "account lockout active",
			"email", email,
			"locked_until", lockState.LockedUntil,
		)
		return AuthResponse{}, domain.ErrAccountLocked
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil || !user.IsActive {
		return AuthResponse{}, domain.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		now := s.nowFn()
		lockState, lockErr := s.lockouts.RecordFailure(ctx, lockKey, now, s.cfg.FailedLoginThreshold, s.cfg.LockoutDuration)
		if lockErr != nil {
			logWarn(ctx, "login", "failed to update lockout state",
				"error_code", "LOCKOUT_STATE_UNAVAILABLE",
				"error", lockErr,
			)
			return AuthResponse{}, domain.ErrAccountLocked
		}
		if lockState.LockedUntil != nil && lockState.LockedUntil.After(now) {
			logWarn(ctx, "login", "account lockout triggered",
				"email", email,
				"locked_until", lockState.LockedUntil,
			)
			return AuthResponse{}, domain.ErrAccountLocked
		}
		return AuthResponse{}, domain.ErrInvalidCredentials
	}

	if err := s.lockouts.Clear(ctx, lockKey); err != nil {
		logWarn(ctx, "login", "failed to clear lockout state", "error", err)
	}
	return s.issueSession(ctx, user, req.IPAddress, req.UserAgent)
}

func (s *Service) issueSession(ctx context.Context, user domain.User, ipAddress, userAgent string) (AuthResponse, error) {
	now := s.nowFn()
	session, err := s.sessions.Create(ctx, ports.SessionCreateParams{
		UserID:         user.UserID,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
		ExpiresAt:      now.Add(s.cfg.SessionTTL),
		LastActivityAt: now,
	})
	if err != nil {
		return AuthResponse{}, fmt.Errorf("create session: %w", err)
	}

	token, err := s.tokenSigner.Sign(ports.AuthClaims{
		UserID:    user.UserID,
		Email:     user.Email,
		Role:      user.Role,
		SessionID: session.SessionID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.TokenTTL),
	})
	if err != nil {
		return AuthResponse{}, fmt.Errorf("sign token: %w", err)
	}

	return AuthResponse{
		User:      toUserView(user),
		Token:     token,
		SessionID: session.SessionID,
		ExpiresIn: int64(s.cfg.TokenTTL.Seconds()),
	}, nil
}

// ValidateToken verifies token integrity and current session validity.
// Session state is re-checked so a logout takes effect before the token expires.
func (s *Service) ValidateToken(ctx context.Context, token string) (ports.AuthClaims, error) {
	claims, err := s.tokenSigner.ParseAndValidate(token)
	if err != nil {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	if revoked, _ := s.revocations.IsRevoked(ctx, claims.SessionID); revoked {
		return ports.AuthClaims{}, domain.ErrSessionRevoked
	}
	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	if session.UserID != claims.UserID {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	if session.RevokedAt != nil {
		return ports.AuthClaims{}, domain.ErrSessionRevoked
	}
	if session.ExpiresAt.Before(s.nowFn()) {
		return ports.AuthClaims{}, domain.ErrSessionExpired
	}
	return claims, nil
}

func (s *Service) Me(ctx context.Context, actor ports.AuthClaims) (UserView, error) {
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return UserView{}, err
	}
	return toUserView(user), nil
}

// UpdateMe changes the caller's display name and/or password. Empty values keep the
// stored ones.
func (s *Service) UpdateMe(ctx context.Context, actor ports.AuthClaims, req UpdateProfileRequest) (UserView, error) {
	if err := s.validateRequest(req); err != nil {
		return UserView{}, err
	}
	var name, passwordHash string
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			return UserView{}, fmt.Errorf("%w: name must not be blank", domain.ErrInvalidInput)
		}
	}
	if req.Password != nil {
		if err := domain.ValidatePassword(*req.Password); err != nil {
			return UserView{}, err
		}
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return UserView{}, fmt.Errorf("hash password: %w", err)
		}
		passwordHash = hash
	}
	if name == "" && passwordHash == "" {
		return UserView{}, fmt.Errorf("%w: nothing to update", domain.ErrInvalidInput)
	}

	user, err := s.users.UpdateProfile(ctx, actor.UserID, name, passwordHash, s.nowFn())
	if err != nil {
		return UserView{}, err
	}
	return toUserView(user), nil
}

// Refresh re-signs the token of a live session.
func (s *Service) Refresh(ctx context.Context, jwtToken string) (RefreshResponse, error) {
	claims, err := s.ValidateToken(ctx, jwtToken)
	if err != nil {
		return RefreshResponse{}, err
	}

	now := s.nowFn()
	if err := s.sessions.TouchActivity(ctx, claims.SessionID, now); err != nil {
		logWarn(ctx, "refresh", "failed to touch session activity", "error", err)
	}

	newToken, err := s.tokenSigner.Sign(ports.AuthClaims{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: claims.SessionID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.TokenTTL),
	})
	if err != nil {
		return RefreshResponse{}, fmt.Errorf("sign refreshed token: %w", err)
	}

	return RefreshResponse{
		Token:     newToken,
		ExpiresIn: int64(s.cfg.TokenTTL.Seconds()),
	}, nil
}

// Logout revokes the caller's session in the database and marks it in the revocation
// cache until the longest-lived token for it would have expired.
func (s *Service) Logout(ctx context.Context, actor ports.AuthClaims) error {
	now := s.nowFn()
	if err := s.sessions.RevokeByID(ctx, actor.SessionID, now); err != nil {
		return err
	}
	if err := s.revocations.MarkRevoked(ctx, actor.SessionID, now.Add(s.cfg.TokenTTL)); err != nil {
		logWarn(ctx, "logout", "failed to write revocation marker", "error", err)
	}
	return nil
}
