package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"payment-service/pkg/utils"

	"go.uber.org/zap"
)

const vaultURL = "https://vault.omise.co"

type omiseClient struct {
	baseURL   string
	publicKey string
	secretKey string
	client    *http.Client
	log       *zap.Logger
}

// NewOmiseClient builds the real processor client. The http.Client timeout
// bounds every call; a slow gateway surfaces as ErrUnavailable, never as an
// indefinitely blocked signal.
func NewOmiseClient(config utils.GatewayConfig, log *zap.Logger) Client {
	return &omiseClient{
		baseURL:   strings.TrimRight(config.BaseURL, "/"),
		publicKey: config.PublicKey,
		secretKey: config.SecretKey,
		client:    &http.Client{Timeout: config.Timeout},
		log:       log.With(zap.String("gateway", "omise")),
	}
}

func (c *omiseClient) CreateToken(ctx context.Context, card Card) (*Token, error) {
	form := url.Values{}
	form.Set("card[number]", card.Number)
	form.Set("card[name]", card.Name)
	form.Set("card[expiration_month]", strconv.Itoa(card.ExpirationMonth))
	form.Set("card[expiration_year]", strconv.Itoa(card.ExpirationYear))
	form.Set("card[security_code]", card.SecurityCode)

	var token Token
	// Tokens go to the vault host and authenticate with the public key.
	if err := c.postForm(ctx, vaultURL+"/tokens", c.publicKey, form, &token); err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}

	c.log.Info("Card token created", zap.String("token_id", token.ID))
	return &token, nil
}

func (c *omiseClient) CreateSource(ctx context.Context, req SourceRequest) (*Source, error) {
	form := url.Values{}
	form.Set("type", req.Type)
	form.Set("amount", strconv.FormatInt(req.Amount, 10))
	form.Set("currency", req.Currency)

	var source Source
	if err := c.postForm(ctx, c.baseURL+"/sources", c.secretKey, form, &source); err != nil {
		return nil, fmt.Errorf("create source type %s: %w", req.Type, err)
	}

	c.log.Info("Source created",
		zap.String("source_id", source.ID),
		zap.String("type", source.Type),
	)
	return &source, nil
}

func (c *omiseClient) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.Amount, 10))
	form.Set("currency", req.Currency)
	if req.CardToken != "" {
		form.Set("card", req.CardToken)
	}
	if req.SourceID != "" {
		form.Set("source", req.SourceID)
	}
	if req.ReturnURI != "" {
		form.Set("return_uri", req.ReturnURI)
	}
	if req.Description != "" {
		form.Set("description", req.Description)
	}
	for k, v := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), fmt.Sprint(v))
	}

	var charge Charge
	if err := c.postForm(ctx, c.baseURL+"/charges", c.secretKey, form, &charge); err != nil {
		return nil, fmt.Errorf("create charge: %w", err)
	}

	c.log.Info("Charge created",
		zap.String("charge_id", charge.ID),
		zap.Int64("amount", charge.Amount),
		zap.String("currency", charge.Currency),
	)
	return &charge, nil
}

func (c *omiseClient) RetrieveCharge(ctx context.Context, chargeID string) (*Charge, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/charges/"+chargeID, nil)
	if err != nil {
		return nil, fmt.Errorf("build retrieve charge request: %w", err)
	}
	req.SetBasicAuth(c.secretKey, "")

	var charge Charge
	if err := c.do(req, &charge); err != nil {
		return nil, fmt.Errorf("retrieve charge %s: %w", chargeID, err)
	}
	return &charge, nil
}

func (c *omiseClient) CancelCharge(ctx context.Context, chargeID string) (*Charge, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/charges/"+chargeID+"/reverse", nil)
	if err != nil {
		return nil, fmt.Errorf("build cancel charge request: %w", err)
	}
	req.SetBasicAuth(c.secretKey, "")

	var charge Charge
	if err := c.do(req, &charge); err != nil {
		return nil, fmt.Errorf("cancel charge %s: %w", chargeID, err)
	}

	c.log.Info("Charge cancelled", zap.String("charge_id", chargeID))
	return &charge, nil
}

func (c *omiseClient) postForm(ctx context.Context, endpoint, key string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(key, "")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req, out)
}

func (c *omiseClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		// Covers client timeout and context deadline.
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrChargeNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Code != "" {
			return fmt.Errorf("%w: %s (%s)", ErrRejected, apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
