package googleads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/sagebrookliving/sagebrook-backend/pkg/config"
	pkgerrors "github.com/sagebrookliving/sagebrook-backend/pkg/errors"
	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
)

const baseURL = "https://googleads.googleapis.com"

var (
	errDeveloperTokenRequired   = errors.New("google ads developer token is required")
	errCustomerIDRequired       = errors.New("google ads customer id is required")
	errConversionActionRequired = errors.New("google ads conversion action id is required")
	errOAuthCredentialsRequired = errors.New("google ads oauth client credentials are required")
	errLoggerRequired           = errors.New("google ads logger is required")
)

// Client uploads click conversions through the Google Ads REST surface with
// centralized auth, logging, and error mapping.
type Client struct {
	httpClient *http.Client
	cfg        config.GoogleAdsConfig
	baseURL    string
	logger     *logger.Logger
}

// ClickConversion is a single offline conversion upload.
type ClickConversion struct {
	GCLID              string
	GBRAID             string
	WBRAID             string
	OrderID            string
	ConversionDateTime time.Time
	Value              float64
	CurrencyCode       string
	HashedEmail        string
	HashedPhoneNumber  string
}

// UploadResult summarizes the API response for one upload call.
type UploadResult struct {
	Accepted            int
	PartialFailure      bool
	PartialFailureError string
}

// NewClient validates the credentials and builds an authorized HTTP client
// from the configured OAuth refresh token.
func NewClient(ctx context.Context, cfg config.GoogleAdsConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if strings.TrimSpace(cfg.DeveloperToken) == "" {
		return nil, errDeveloperTokenRequired
	}
	if strings.TrimSpace(cfg.CustomerID) == "" {
		return nil, errCustomerIDRequired
	}
	if strings.TrimSpace(cfg.ConversionActionID) == "" {
		return nil, errConversionActionRequired
	}
	if strings.TrimSpace(cfg.OAuthClientID) == "" || strings.TrimSpace(cfg.OAuthClientSecret) == "" || strings.TrimSpace(cfg.OAuthRefreshToken) == "" {
		return nil, errOAuthCredentialsRequired
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		Endpoint:     google.Endpoint,
	}
	source := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.OAuthRefreshToken})

	httpClient := oauth2.NewClient(ctx, source)
	httpClient.Timeout = cfg.Timeout

	c := &Client{
		httpClient: httpClient,
		cfg:        cfg,
		baseURL:    baseURL,
		logger:     logg,
	}

	logg.Info(ctx, "google ads client initialized")
	return c, nil
}

// UploadClickConversion sends one conversion to the configured conversion action.
func (c *Client) UploadClickConversion(ctx context.Context, conv ClickConversion) (*UploadResult, error) {
	if c == nil || c.httpClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "google ads client not initialized")
	}

	body := c.buildUploadRequest(conv)
	c.log(ctx, "request", "upload_click_conversion", map[string]any{
		"order_id": conv.OrderID,
		"gclid":    conv.GCLID,
		"value":    conv.Value,
		"currency": conv.CurrencyCode,
	})

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding google ads upload")
	}

	url := fmt.Sprintf("%s/%s/customers/%s:uploadClickConversions", c.baseURL, c.cfg.APIVersion, c.cfg.CustomerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building google ads request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("developer-token", c.cfg.DeveloperToken)
	if id := strings.TrimSpace(c.cfg.LoginCustomerID); id != "" {
		req.Header.Set("login-customer-id", id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log(ctx, "error", "upload_click_conversion", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "google ads upload failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading google ads response")
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := fmt.Errorf("google ads status %d: %s", resp.StatusCode, truncate(string(raw), 512))
		c.log(ctx, "error", "upload_click_conversion", map[string]any{"error": apiErr.Error()})
		return nil, pkgerrors.Wrap(domainCodeForStatus(resp.StatusCode), apiErr, "google ads upload failed")
	}

	result, err := parseUploadResponse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding google ads response")
	}

	c.log(ctx, "response", "upload_click_conversion", map[string]any{
		"accepted":        result.Accepted,
		"partial_failure": result.PartialFailure,
	})
	return result, nil
}

type uploadRequest struct {
	Conversions    []conversionBody `json:"conversions"`
	PartialFailure bool             `json:"partialFailure"`
}

type conversionBody struct {
	GCLID              string           `json:"gclid,omitempty"`
	GBRAID             string           `json:"gbraid,omitempty"`
	WBRAID             string           `json:"wbraid,omitempty"`
	ConversionAction   string           `json:"conversionAction"`
	ConversionDateTime string           `json:"conversionDateTime"`
	ConversionValue    float64          `json:"conversionValue"`
	CurrencyCode       string           `json:"currencyCode"`
	OrderID            string           `json:"orderId,omitempty"`
	UserIdentifiers    []userIdentifier `json:"userIdentifiers,omitempty"`
}

type userIdentifier struct {
	HashedEmail       string `json:"hashedEmail,omitempty"`
	HashedPhoneNumber string `json:"hashedPhoneNumber,omitempty"`
}

func (c *Client) buildUploadRequest(conv ClickConversion) uploadRequest {
	identifiers := []userIdentifier{}
	if conv.HashedEmail != "" {
		identifiers = append(identifiers, userIdentifier{HashedEmail: conv.HashedEmail})
	}
	if conv.HashedPhoneNumber != "" {
		identifiers = append(identifiers, userIdentifier{HashedPhoneNumber: conv.HashedPhoneNumber})
	}

	return uploadRequest{
		Conversions: []conversionBody{{
			GCLID:              conv.GCLID,
			GBRAID:             conv.GBRAID,
			WBRAID:             conv.WBRAID,
			ConversionAction:   fmt.Sprintf("customers/%s/conversionActions/%s", c.cfg.CustomerID, c.cfg.ConversionActionID),
			ConversionDateTime: formatConversionTime(conv.ConversionDateTime),
			ConversionValue:    conv.Value,
			CurrencyCode:       conv.CurrencyCode,
			OrderID:            conv.OrderID,
			UserIdentifiers:    identifiers,
		}},
		PartialFailure: true,
	}
}

func parseUploadResponse(raw []byte) (*UploadResult, error) {
	var payload struct {
		Results             []json.RawMessage `json:"results"`
		PartialFailureError *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"partialFailureError"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	result := &UploadResult{Accepted: len(payload.Results)}
	if payload.PartialFailureError != nil {
		result.PartialFailure = true
		result.PartialFailureError = payload.PartialFailureError.Message
	}
	return result, nil
}

// formatConversionTime renders the "yyyy-mm-dd hh:mm:ss+|-hh:mm" layout the API expects.
func formatConversionTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format("2006-01-02 15:04:05-07:00")
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("google ads %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("google ads %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"token", "secret", "email", "phone", "gclid"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
