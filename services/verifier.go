package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/SoftwareDeveloper2002/iskolardev-node/config"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

// Identity is a verified view of an externally-issued ID token. It lives for
// one request and is never persisted.
type Identity struct {
	UID       string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenInvalid   = errors.New("token invalid")
)

// Verifier validates a bearer assertion against the identity provider.
// Extracting the assertion from the Authorization header is the caller's job;
// the verifier only ever sees the raw token string.
type Verifier interface {
	Verify(ctx context.Context, assertion string) (*Identity, error)
}

type identityClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// FirebaseVerifier checks RS256 ID tokens against the provider's JWKS. Keys
// are fetched once at construction and refreshed in the background, so the
// hot path never blocks on the JWKS endpoint.
type FirebaseVerifier struct {
	keyfunc  jwt.Keyfunc
	issuer   string
	audience string
}

func NewFirebaseVerifier(cfg config.Config) (*FirebaseVerifier, error) {
	jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Printf("JWKS refresh failed: %v", err)
		},
	})
	if err != nil {
		return nil, err
	}

	return &FirebaseVerifier{
		keyfunc:  jwks.Keyfunc,
		issuer:   cfg.TokenIssuer,
		audience: cfg.TokenAudience,
	}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, assertion string) (*Identity, error) {
	claims := &identityClaims{}
	token, err := jwt.ParseWithClaims(assertion, claims, v.keyfunc)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrTokenInvalid
		}
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return nil, ErrTokenInvalid
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return nil, ErrTokenInvalid
	}

	identity := &Identity{
		UID:   claims.Subject,
		Email: claims.Email,
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}
