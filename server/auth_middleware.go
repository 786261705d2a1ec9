package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/chetanran/devsecops-sec-dashboard/internal/config"
	apperrors "github.com/chetanran/devsecops-sec-dashboard/internal/errors"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyUserID stores the authenticated user's object ID
	ContextKeyUserID ContextKey = "user_id"
	// ContextKeyClaims stores the verified token claims
	ContextKeyClaims ContextKey = "claims"
)

// UploadKeyHeader carries the shared key CI pipelines use to post
// scanner output without an interactive sign-in.
const UploadKeyHeader = "X-Upload-Key"

// TokenClaims is the subset of identity claims the API cares about.
type TokenClaims struct {
	Subject           string `json:"sub"`
	PreferredUsername string `json:"preferred_username"`
	Name              string `json:"name"`
}

// TokenVerifier validates a raw bearer token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*TokenClaims, error)
}

// AzureVerifier validates access tokens against the tenant's signing
// keys. Tokens arrive with either the v1.0 (sts.windows.net) or v2.0
// (login.microsoftonline.com) issuer depending on how the client app
// is registered, so the verifier is picked from the unverified iss
// claim before signature verification.
type AzureVerifier struct {
	issuerV1   string
	issuerV2   string
	verifierV1 *oidc.IDTokenVerifier
	verifierV2 *oidc.IDTokenVerifier
}

var _ TokenVerifier = (*AzureVerifier)(nil)

// NewAzureVerifier builds a verifier backed by the tenant's remote
// JWKS endpoint. Key fetches are cached and refreshed by the key set
// itself; ctx bounds those background fetches.
func NewAzureVerifier(ctx context.Context, identity config.IdentityConfig) *AzureVerifier {
	jwksURL := fmt.Sprintf("https://login.microsoftonline.com/%s/discovery/v2.0/keys", identity.GetTenantID())
	keySet := oidc.NewRemoteKeySet(ctx, jwksURL)
	oidcConfig := &oidc.Config{ClientID: identity.GetAudience()}

	return &AzureVerifier{
		issuerV1:   identity.GetIssuerURLV1(),
		issuerV2:   identity.GetIssuerURL(),
		verifierV1: oidc.NewVerifier(identity.GetIssuerURLV1(), keySet, oidcConfig),
		verifierV2: oidc.NewVerifier(identity.GetIssuerURL(), keySet, oidcConfig),
	}
}

func (v *AzureVerifier) Verify(ctx context.Context, rawToken string) (*TokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return nil, errors.Wrap(apperrors.ErrUnauthorized, "malformed token")
	}
	issuer, err := claims.GetIssuer()
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrUnauthorized, "token missing issuer")
	}

	var verifier *oidc.IDTokenVerifier
	switch issuer {
	case v.issuerV1:
		verifier = v.verifierV1
	case v.issuerV2:
		verifier = v.verifierV2
	default:
		return nil, errors.Wrapf(apperrors.ErrUnauthorized, "unknown token issuer %q", issuer)
	}

	token, err := verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrUnauthorized, err.Error())
	}

	var tokenClaims TokenClaims
	if err := token.Claims(&tokenClaims); err != nil {
		return nil, errors.Wrap(apperrors.ErrUnauthorized, "undecodable token claims")
	}
	tokenClaims.Subject = token.Subject
	return &tokenClaims, nil
}

// RequireAuth is middleware that validates a Bearer access token.
// Used for API routes the SPA calls on behalf of a signed-in user.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Missing Authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid Authorization header format")
				return
			}

			rawToken := parts[1]
			if rawToken == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Empty token")
				return
			}

			claims, err := s.verifier.Verify(r.Context(), rawToken)
			if err != nil {
				s.logger.Warn().Err(err).Msg("token verification failed")
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUserID, claims.Subject)
			ctx = context.WithValue(ctx, ContextKeyClaims, claims)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireUploadAuth accepts either an interactive bearer token or the
// CI upload key. The key is compared against a bcrypt hash, so the
// clear value never appears in the server's configuration.
func (s *Server) RequireUploadAuth() func(http.HandlerFunc) http.HandlerFunc {
	requireAuth := s.RequireAuth()
	return func(next http.HandlerFunc) http.HandlerFunc {
		bearer := requireAuth(next)
		return func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(UploadKeyHeader)
			if key == "" {
				bearer(w, r)
				return
			}

			hash := s.config.GetUploadKeyHash()
			if hash == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Upload key not configured")
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
				s.logger.Warn().Msg("upload key rejected")
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid upload key")
				return
			}

			next(w, r)
		}
	}
}
