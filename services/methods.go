package services

import (
	"strings"

	"github.com/SoftwareDeveloper2002/iskolardev-node/utils"
)

// BillingInput is the billing block a client sends on intent creation. All
// fields are optional; missing ones are filled with placeholder defaults so
// the provider call never fails on incomplete billing. The defaults are a
// convenience for checkout, not fabricated identity — the stored intent keeps
// the client's original (possibly empty) billing.
type BillingInput struct {
	Name  string `json:"name,omitempty" validate:"omitempty,max=256"`
	Email string `json:"email,omitempty" validate:"omitempty,email,max=256"`
	Phone string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

const (
	defaultBillingEmail = "payer@example.com"
	defaultBillingPhone = "09123456789"
)

// Method is one supported payment source type. Each method owns the rule for
// shaping billing data into what PayMongo expects for that type; adding a
// method means adding a registry entry, nothing else.
type Method struct {
	Name             string
	NormalizeBilling func(in BillingInput) map[string]interface{}
}

var methodRegistry = map[string]Method{
	"gcash": {
		Name: "gcash",
		NormalizeBilling: func(in BillingInput) map[string]interface{} {
			billing := baseBilling("gcash", in)
			billing["gcashNumber"] = billingPhone(in)
			return billing
		},
	},
	"grab_pay": {
		Name: "grab_pay",
		NormalizeBilling: func(in BillingInput) map[string]interface{} {
			billing := baseBilling("grab_pay", in)
			billing["phone"] = billingPhone(in)
			return billing
		},
	},
}

// LookupMethod returns the registered method for a (lower-cased) payment
// type, or a passthrough for source types the registry has no special rule
// for. Unknown types are not rejected here; PayMongo is the authority on
// which types exist.
func LookupMethod(paymentType string) Method {
	if m, ok := methodRegistry[paymentType]; ok {
		return m
	}
	return Method{
		Name: paymentType,
		NormalizeBilling: func(in BillingInput) map[string]interface{} {
			return baseBilling(paymentType, in)
		},
	}
}

func baseBilling(paymentType string, in BillingInput) map[string]interface{} {
	name := in.Name
	if name == "" {
		name = strings.ToUpper(paymentType) + " Payer"
	}
	email := in.Email
	if email == "" {
		email = defaultBillingEmail
	}
	return map[string]interface{}{
		"name":  name,
		"email": email,
	}
}

func billingPhone(in BillingInput) string {
	if in.Phone == "" {
		return defaultBillingPhone
	}
	return utils.NormalizePHMobile(in.Phone)
}
