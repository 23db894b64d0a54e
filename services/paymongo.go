package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/SoftwareDeveloper2002/iskolardev-node/config"
)

var (
	// ErrProvider covers transport failures and error responses from
	// PayMongo. The wrapped message carries the provider's detail when one
	// was returned.
	ErrProvider = errors.New("payment provider error")
	// ErrNoCheckoutURL means PayMongo accepted the source but the response
	// had no redirect checkout URL, which breaks the checkout contract.
	ErrNoCheckoutURL = errors.New("no checkout URL in provider response")
)

// SourceParams is one source-creation request in minor currency units.
type SourceParams struct {
	AmountMinor int64
	Type        string
	Billing     map[string]interface{}
}

// Source is what the caller needs from a created source: the provider-issued
// id and the URL the payer gets redirected to.
type Source struct {
	ID          string
	CheckoutURL string
}

// SourceCreator is the provider surface the intent builder depends on.
type SourceCreator interface {
	CreateSource(ctx context.Context, params SourceParams) (*Source, error)
}

// PayMongo is a client for the PayMongo sources API. Safe for concurrent use.
type PayMongo struct {
	baseURL    string
	authHeader string
	successURL string
	failedURL  string
	client     *http.Client
}

func NewPayMongo(cfg config.Config) *PayMongo {
	return &PayMongo{
		baseURL:    cfg.PayMongoBaseURL,
		authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.PayMongoSecretKey+":")),
		successURL: cfg.PaymentSuccessURL,
		failedURL:  cfg.PaymentFailedURL,
		client:     &http.Client{Timeout: cfg.ProviderHTTPTimeout},
	}
}

type sourceResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Redirect struct {
				CheckoutURL string `json:"checkout_url"`
			} `json:"redirect"`
		} `json:"attributes"`
	} `json:"data"`
	Errors []struct {
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (pm *PayMongo) CreateSource(ctx context.Context, params SourceParams) (*Source, error) {
	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"attributes": map[string]interface{}{
				"amount": params.AmountMinor,
				"redirect": map[string]string{
					"success": pm.successURL,
					"failed":  pm.failedURL,
				},
				"type":     params.Type,
				"currency": "PHP",
				"billing":  params.Billing,
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pm.baseURL+"/v1/sources", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	req.Header.Set("Authorization", pm.authHeader)
	req.Header.Set("Content-Type", "application/json")

	res, err := pm.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	var parsed sourceResponse
	json.Unmarshal(resBody, &parsed)

	if res.StatusCode >= 400 {
		detail := string(resBody)
		if len(parsed.Errors) > 0 && parsed.Errors[0].Detail != "" {
			detail = parsed.Errors[0].Detail
		}
		return nil, fmt.Errorf("%w: PayMongo error: %s", ErrProvider, detail)
	}

	checkoutURL := parsed.Data.Attributes.Redirect.CheckoutURL
	if checkoutURL == "" {
		return nil, ErrNoCheckoutURL
	}

	return &Source{ID: parsed.Data.ID, CheckoutURL: checkoutURL}, nil
}
