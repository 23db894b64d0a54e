package services

import (
	"context"
	"errors"
	"strings"

	"github.com/SoftwareDeveloper2002/iskolardev-node/storage"
)

// Denial reasons surfaced on an authorization decision.
const (
	ReasonMissingToken   = "missing_token"
	ReasonTokenExpired   = "token_expired"
	ReasonTokenInvalid   = "token_invalid"
	ReasonTokenMalformed = "token_malformed"
	ReasonUserNotFound   = "user_not_found"
	ReasonRoleMismatch   = "role_mismatch"
	ReasonStorageError   = "storage_error"
)

// Decision is the transient result of one authorization check. On a role
// mismatch both roles are populated so the denial can be reported precisely.
type Decision struct {
	Allowed      bool
	UID          string
	Email        string
	Role         string
	ExpectedRole string
	Reason       string
}

// RoleResolver looks up the stored role for a uid, lower-cased. Returns
// storage.ErrUserNotFound when no record exists.
type RoleResolver interface {
	GetRole(ctx context.Context, uid string) (string, error)
}

// Gateway authenticates a request and checks its role claim. The order is
// fixed: assertion validity first, then role existence, then role match — a
// bad token must never reveal whether the uid has a role record.
type Gateway struct {
	verifier Verifier
	roles    RoleResolver
}

func NewGateway(verifier Verifier, roles RoleResolver) *Gateway {
	return &Gateway{verifier: verifier, roles: roles}
}

// Authorize checks the Authorization header value and an optional expected
// role (case-insensitive). It never returns partial identity data on denial.
func (g *Gateway) Authorize(ctx context.Context, authorizationHeader, expectedRole string) Decision {
	// Roles are stored lower-cased; normalize the claim once so both the
	// comparison and any reported mismatch use the canonical form.
	expectedRole = strings.ToLower(expectedRole)

	assertion, ok := extractBearer(authorizationHeader)
	if !ok {
		return Decision{Reason: ReasonMissingToken}
	}

	identity, err := g.verifier.Verify(ctx, assertion)
	if err != nil {
		return Decision{Reason: verifyReason(err)}
	}

	role, err := g.roles.GetRole(ctx, identity.UID)
	if errors.Is(err, storage.ErrUserNotFound) {
		return Decision{Reason: ReasonUserNotFound}
	}
	if err != nil {
		return Decision{Reason: ReasonStorageError}
	}

	if expectedRole != "" && expectedRole != role {
		return Decision{
			Reason:       ReasonRoleMismatch,
			Role:         role,
			ExpectedRole: expectedRole,
		}
	}

	return Decision{
		Allowed: true,
		UID:     identity.UID,
		Email:   identity.Email,
		Role:    role,
	}
}

func extractBearer(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

func verifyReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return ReasonTokenExpired
	case errors.Is(err, ErrTokenMalformed):
		return ReasonTokenMalformed
	default:
		return ReasonTokenInvalid
	}
}
