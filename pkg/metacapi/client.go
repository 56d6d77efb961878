package metacapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sagebrookliving/sagebrook-backend/pkg/config"
	pkgerrors "github.com/sagebrookliving/sagebrook-backend/pkg/errors"
	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
)

const baseURL = "https://graph.facebook.com"

var (
	errPixelIDRequired     = errors.New("meta pixel id is required")
	errAccessTokenRequired = errors.New("meta access token is required")
	errLoggerRequired      = errors.New("meta logger is required")
)

// Client sends server events to the Meta Conversions API with centralized
// logging and error mapping.
type Client struct {
	httpClient *http.Client
	cfg        config.MetaConversionsConfig
	baseURL    string
	logger     *logger.Logger
}

// UserData carries the hashed and unhashed match identifiers for one event.
type UserData struct {
	HashedEmail     string
	HashedPhone     string
	FBP             string
	FBC             string
	ClientIP        string
	ClientUserAgent string
}

// CustomData carries the value payload attached to one event.
type CustomData struct {
	Value           float64
	Currency        string
	ContentName     string
	ContentCategory string
}

// ServerEvent is a single Conversions API event.
type ServerEvent struct {
	EventName      string
	EventTime      time.Time
	EventID        string
	EventSourceURL string
	User           UserData
	Custom         CustomData
}

// SendResult summarizes the API acknowledgement.
type SendResult struct {
	EventsReceived int
	TraceID        string
}

// NewClient validates the credentials and builds the Conversions API wrapper.
func NewClient(ctx context.Context, cfg config.MetaConversionsConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if strings.TrimSpace(cfg.PixelID) == "" {
		return nil, errPixelIDRequired
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errAccessTokenRequired
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		baseURL:    baseURL,
		logger:     logg,
	}

	logg.Info(ctx, "meta conversions client initialized")
	return c, nil
}

// SendEvent posts one server event to the configured pixel.
func (c *Client) SendEvent(ctx context.Context, event ServerEvent) (*SendResult, error) {
	if c == nil || c.httpClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "meta conversions client not initialized")
	}

	c.log(ctx, "request", "send_event", map[string]any{
		"event_name": event.EventName,
		"event_id":   event.EventID,
		"value":      event.Custom.Value,
		"currency":   event.Custom.Currency,
	})

	body := c.buildRequest(event)
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding meta event")
	}

	endpoint := fmt.Sprintf("%s/%s/%s/events?access_token=%s",
		c.baseURL, c.cfg.APIVersion, c.cfg.PixelID, url.QueryEscape(c.cfg.AccessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building meta request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log(ctx, "error", "send_event", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "meta event send failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading meta response")
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := decodeGraphError(resp.StatusCode, raw)
		c.log(ctx, "error", "send_event", map[string]any{"error": apiErr.Error()})
		return nil, pkgerrors.Wrap(domainCodeForStatus(resp.StatusCode), apiErr, "meta event send failed")
	}

	var ack struct {
		EventsReceived int    `json:"events_received"`
		FBTraceID      string `json:"fbtrace_id"`
	}
	if err := json.Unmarshal(raw, &ack); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding meta response")
	}

	result := &SendResult{EventsReceived: ack.EventsReceived, TraceID: ack.FBTraceID}
	c.log(ctx, "response", "send_event", map[string]any{
		"events_received": result.EventsReceived,
		"fbtrace_id":      result.TraceID,
	})
	return result, nil
}

type eventRequest struct {
	Data          []eventBody `json:"data"`
	TestEventCode string      `json:"test_event_code,omitempty"`
}

type eventBody struct {
	EventName      string         `json:"event_name"`
	EventTime      int64          `json:"event_time"`
	EventID        string         `json:"event_id"`
	ActionSource   string         `json:"action_source"`
	EventSourceURL string         `json:"event_source_url,omitempty"`
	UserData       map[string]any `json:"user_data"`
	CustomData     map[string]any `json:"custom_data,omitempty"`
}

func (c *Client) buildRequest(event ServerEvent) eventRequest {
	when := event.EventTime
	if when.IsZero() {
		when = time.Now()
	}

	userData := map[string]any{}
	if event.User.HashedEmail != "" {
		userData["em"] = []string{event.User.HashedEmail}
	}
	if event.User.HashedPhone != "" {
		userData["ph"] = []string{event.User.HashedPhone}
	}
	if event.User.FBP != "" {
		userData["fbp"] = event.User.FBP
	}
	if event.User.FBC != "" {
		userData["fbc"] = event.User.FBC
	}
	if event.User.ClientIP != "" {
		userData["client_ip_address"] = event.User.ClientIP
	}
	if event.User.ClientUserAgent != "" {
		userData["client_user_agent"] = event.User.ClientUserAgent
	}

	customData := map[string]any{
		"value":    event.Custom.Value,
		"currency": event.Custom.Currency,
	}
	if event.Custom.ContentName != "" {
		customData["content_name"] = event.Custom.ContentName
	}
	if event.Custom.ContentCategory != "" {
		customData["content_category"] = event.Custom.ContentCategory
	}

	return eventRequest{
		Data: []eventBody{{
			EventName:      event.EventName,
			EventTime:      when.Unix(),
			EventID:        event.EventID,
			ActionSource:   "website",
			EventSourceURL: event.EventSourceURL,
			UserData:       userData,
			CustomData:     customData,
		}},
		TestEventCode: c.cfg.TestEventCode,
	}
}

func decodeGraphError(status int, raw []byte) error {
	var payload struct {
		Error struct {
			Message   string `json:"message"`
			Type      string `json:"type"`
			Code      int    `json:"code"`
			FBTraceID string `json:"fbtrace_id"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error.Message != "" {
		return fmt.Errorf("meta graph error %d (%s): %s", payload.Error.Code, payload.Error.Type, payload.Error.Message)
	}
	return fmt.Errorf("meta status %d", status)
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
		c.logger.Error(ctx, fmt.Sprintf("meta %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("meta %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"token", "secret", "email", "phone", "fbp", "fbc", "ip"} {
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
