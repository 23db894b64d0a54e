package routes

import (
	"fmt"

	"github.com/SoftwareDeveloper2002/iskolardev-node/services"
	"github.com/SoftwareDeveloper2002/iskolardev-node/utils"

	"github.com/kataras/iris/v12"
)

// Auth exposes the role-gateway endpoints.
type Auth struct {
	gateway *services.Gateway
}

func NewAuth(gateway *services.Gateway) *Auth {
	return &Auth{gateway: gateway}
}

type VerifyAuthInput struct {
	Role string `json:"role"`
}

type LoginInput struct {
	ExpectedRole string `json:"expectedRole"`
}

// Verify authenticates the bearer assertion and optionally checks the role
// the frontend believes it has.
func (h *Auth) Verify(ctx iris.Context) {
	var input VerifyAuthInput
	ctx.ReadJSON(&input) // body is optional

	decision := h.gateway.Authorize(ctx.Request().Context(), ctx.GetHeader("Authorization"), input.Role)
	if !decision.Allowed {
		writeDenial(ctx, decision, "Role mismatch. Access denied.")
		return
	}

	ctx.JSON(iris.Map{
		"success": true,
		"uid":     decision.UID,
		"email":   decision.Email,
		"role":    decision.Role,
	})
}

// Login is the role-gated entry the frontend calls on sign-in. Same gate as
// Verify, but the mismatch response names both roles.
func (h *Auth) Login(ctx iris.Context) {
	var input LoginInput
	ctx.ReadJSON(&input) // body is optional

	decision := h.gateway.Authorize(ctx.Request().Context(), ctx.GetHeader("Authorization"), input.ExpectedRole)
	if !decision.Allowed {
		mismatch := fmt.Sprintf("Unauthorized role: expected %s, got %s", decision.ExpectedRole, decision.Role)
		writeDenial(ctx, decision, mismatch)
		return
	}

	ctx.JSON(iris.Map{
		"success": true,
		"uid":     decision.UID,
		"email":   decision.Email,
		"role":    decision.Role,
	})
}

func writeDenial(ctx iris.Context, decision services.Decision, mismatchMessage string) {
	switch decision.Reason {
	case services.ReasonMissingToken:
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "Missing or invalid token"})
	case services.ReasonUserNotFound:
		ctx.StatusCode(iris.StatusNotFound)
		ctx.JSON(iris.Map{"message": "User not found in database."})
	case services.ReasonRoleMismatch:
		ctx.StatusCode(iris.StatusForbidden)
		ctx.JSON(iris.Map{"message": mismatchMessage})
	case services.ReasonStorageError:
		utils.CreateInternalServerError(ctx)
	default:
		// token_expired, token_invalid, token_malformed
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "Invalid or expired token"})
	}
}
