package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/ecoscore/internal/common"
)

// SkipAuthUserID is the uid every request gets when verification is disabled.
const SkipAuthUserID = "skip-auth"

// Claims is what the rest of the service learns about a caller.
type Claims struct {
	UserID string
	Email  string
}

// Verifier checks a bearer token.
type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// New returns the static verifier when skipAuth is set and a Google ID token
// verifier otherwise.
func New(ctx context.Context, cfg common.AuthConfig, logger *slog.Logger, opts ...option.ClientOption) (Verifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SkipAuth {
		logger.Warn("auth.disabled", "user_id", SkipAuthUserID)
		return Static{UserID: SkipAuthUserID}, nil
	}
	v, err := idtoken.NewValidator(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GoogleVerifier{audience: cfg.Audience, validate: v.Validate, log: logger}, nil
}

// GoogleVerifier validates Google-signed ID tokens (Firebase and Google
// Sign-In both issue these).
type GoogleVerifier struct {
	audience string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
	log      *slog.Logger
}

func (g *GoogleVerifier) Verify(ctx context.Context, token string) (Claims, error) {
	if strings.TrimSpace(token) == "" {
		return Claims{}, unauthorized("missing token", nil)
	}
	p, err := g.validate(ctx, token, g.audience)
	if err != nil {
		g.log.Debug("auth.verify.failed", "error", err)
		return Claims{}, unauthorized("invalid or expired token", err)
	}
	if p.Subject == "" {
		return Claims{}, unauthorized("token has no subject", nil)
	}
	c := Claims{UserID: p.Subject}
	if email, ok := p.Claims["email"].(string); ok {
		c.Email = email
	}
	return c, nil
}

// Static accepts any token and reports a fixed user.
type Static struct {
	UserID string
}

func (s Static) Verify(context.Context, string) (Claims, error) {
	return Claims{UserID: s.UserID}, nil
}

// BearerToken strips the "Bearer " scheme from an authorization value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

func unauthorized(msg string, cause error) error {
	if cause == nil {
		cause = common.ErrUnauthorized
	} else {
		cause = errors.Join(common.ErrUnauthorized, cause)
	}
	return common.NewAppError("UNAUTHENTICATED", msg, cause)
}
