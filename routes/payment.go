package routes

import (
	"encoding/json"
	"errors"
	"io"
	"log"

	"github.com/SoftwareDeveloper2002/iskolardev-node/services"
	"github.com/SoftwareDeveloper2002/iskolardev-node/utils"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
)

// Payments exposes the PayMongo intent and webhook endpoints.
type Payments struct {
	intents  *services.Intents
	webhooks *services.Webhooks
	gateway  *services.Gateway
}

func NewPayments(intents *services.Intents, webhooks *services.Webhooks, gateway *services.Gateway) *Payments {
	return &Payments{intents: intents, webhooks: webhooks, gateway: gateway}
}

type CreatePaymentIntentInput struct {
	Amount  json.RawMessage       `json:"amount"`
	Billing services.BillingInput `json:"billing"`
}

// CreateIntent creates a PayMongo source for the payment type in the path
// and records the pending intent. Checkout stays anonymous: a bearer
// assertion is not required, but when a valid one is present the uid is
// attached to the stored record.
func (h *Payments) CreateIntent(ctx iris.Context) {
	paymentType := ctx.Params().Get("paymentType")

	var input CreatePaymentIntentInput
	if err := ctx.ReadJSON(&input); err != nil {
		if _, ok := err.(validator.ValidationErrors); ok {
			utils.HandleValidationErrors(err, ctx)
			return
		}
		// a missing or unreadable body falls through to amount validation
	}

	uid := ""
	if header := ctx.GetHeader("Authorization"); header != "" {
		if decision := h.gateway.Authorize(ctx.Request().Context(), header, ""); decision.Allowed {
			uid = decision.UID
		}
	}

	result, err := h.intents.Create(ctx.Request().Context(), paymentType, services.CreateIntentInput{
		Amount:  input.Amount,
		Billing: input.Billing,
		UID:     uid,
	})
	if errors.Is(err, services.ErrInvalidAmount) {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "Invalid amount"})
		return
	}
	if err != nil {
		log.Printf("error in /paymongo/%s/intent: %v", paymentType, err)
		ctx.StatusCode(iris.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": err.Error()})
		return
	}

	ctx.JSON(iris.Map{
		"checkoutUrl": result.CheckoutURL,
		"sourceId":    result.SourceID,
	})
}

// Webhook receives PayMongo's asynchronous status callbacks. Responses are
// empty: 200 tells the provider to stop retrying, 500 asks it to try again
// once storage recovers.
func (h *Payments) Webhook(ctx iris.Context) {
	paymentType := ctx.Params().Get("paymentType")

	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		ctx.StatusCode(iris.StatusBadRequest)
		return
	}

	err = h.webhooks.Reconcile(ctx.Request().Context(), paymentType, body)
	if errors.Is(err, services.ErrBadEvent) {
		ctx.StatusCode(iris.StatusBadRequest)
		return
	}
	if err != nil {
		log.Printf("webhook error for %s: %v", paymentType, err)
		ctx.StatusCode(iris.StatusInternalServerError)
		return
	}

	ctx.StatusCode(iris.StatusOK)
}
