package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sagebrookliving/sagebrook-backend/internal/leads"
	"github.com/sagebrookliving/sagebrook-backend/pkg/db/models"
	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
)

type testLeadsService struct {
	submitFn       func(ctx context.Context, input leads.SubmitInput) (*leads.SubmitResult, error)
	getFn          func(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	listFn         func(ctx context.Context, params leads.ListParams) (*leads.ListResult, error)
	updateStatusFn func(ctx context.Context, id uuid.UUID, status enums.LeadStatus) error
}

func (s *testLeadsService) Submit(ctx context.Context, input leads.SubmitInput) (*leads.SubmitResult, error) {
	if s.submitFn != nil {
		return s.submitFn(ctx, input)
	}
	return nil, nil
}

func (s *testLeadsService) Get(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, nil
}

func (s *testLeadsService) List(ctx context.Context, params leads.ListParams) (*leads.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &leads.ListResult{}, nil
}

func (s *testLeadsService) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.LeadStatus) error {
	if s.updateStatusFn != nil {
		return s.updateStatusFn(ctx, id, status)
	}
	return nil
}

func (s *testLeadsService) ScrubExpiredPII(ctx context.Context, cutoff time.Time, batch int) (int64, error) {
	return 0, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestSubmitLeadSuccess(t *testing.T) {
	leadID := uuid.New()
	var captured leads.SubmitInput
	svc := &testLeadsService{
		submitFn: func(ctx context.Context, input leads.SubmitInput) (*leads.SubmitResult, error) {
			captured = input
			return &leads.SubmitResult{
				Lead:       &models.Lead{ID: leadID, TransactionID: input.TransactionID},
				Dispatched: true,
			}, nil
		},
	}

	payload := `{
		"transaction_id": "txn-abc-123",
		"lead_type": "schedule_tour",
		"first_name": "Ruth",
		"email": "ruth@example.com",
		"phone": "555-283-9917",
		"care_types": ["assisted_living"],
		"move_in_by": "2026-11-01",
		"value": "75.50",
		"gclid": "Cj0KCQ",
		"utm_source": "google",
		"utm_medium": "cpc",
		"utm_campaign": "fall-tours",
		"utm_term": "memory care near me",
		"utm_content": "ad-variant-b",
		"ad_tracking_ok": true
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/leads", strings.NewReader(payload))
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req.Header.Set("User-Agent", "form-test")
	resp := httptest.NewRecorder()

	SubmitLead(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if captured.TransactionID != "txn-abc-123" {
		t.Fatalf("unexpected transaction id %q", captured.TransactionID)
	}
	if captured.LeadType != enums.LeadTypeScheduleTour {
		t.Fatalf("unexpected lead type %q", captured.LeadType)
	}
	if captured.ClientIP != "203.0.113.9" {
		t.Fatalf("unexpected client ip %q", captured.ClientIP)
	}
	if captured.ClientUserAgent != "form-test" {
		t.Fatalf("unexpected user agent %q", captured.ClientUserAgent)
	}
	if captured.MoveInBy == nil || captured.MoveInBy.Format("2006-01-02") != "2026-11-01" {
		t.Fatalf("unexpected move in %v", captured.MoveInBy)
	}
	if captured.Value == nil || captured.Value.String() != "75.5" {
		t.Fatalf("unexpected value %v", captured.Value)
	}
	if captured.Tracking.GCLID != "Cj0KCQ" {
		t.Fatalf("unexpected gclid %q", captured.Tracking.GCLID)
	}
	if captured.Tracking.UTMSource != "google" || captured.Tracking.UTMMedium != "cpc" {
		t.Fatalf("unexpected utm source/medium %q/%q", captured.Tracking.UTMSource, captured.Tracking.UTMMedium)
	}
	if captured.Tracking.UTMCampaign != "fall-tours" {
		t.Fatalf("unexpected utm campaign %q", captured.Tracking.UTMCampaign)
	}
	if captured.Tracking.UTMTerm != "memory care near me" || captured.Tracking.UTMContent != "ad-variant-b" {
		t.Fatalf("unexpected utm term/content %q/%q", captured.Tracking.UTMTerm, captured.Tracking.UTMContent)
	}
	if !captured.AdTrackingOK {
		t.Fatal("expected ad tracking consent carried through")
	}

	var envelope struct {
		Data leadSubmitResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.LeadID != leadID {
		t.Fatalf("unexpected lead id %s", envelope.Data.LeadID)
	}
	if !envelope.Data.Dispatched {
		t.Fatal("expected dispatched flag")
	}
}

func TestSubmitLeadDuplicateReturns200(t *testing.T) {
	svc := &testLeadsService{
		submitFn: func(ctx context.Context, input leads.SubmitInput) (*leads.SubmitResult, error) {
			return &leads.SubmitResult{
				Lead:      &models.Lead{ID: uuid.New(), TransactionID: input.TransactionID},
				Duplicate: true,
			}, nil
		},
	}

	payload := `{"transaction_id": "txn-dup", "lead_type": "lead_submit", "email": "r@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/leads", strings.NewReader(payload))
	resp := httptest.NewRecorder()

	SubmitLead(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for duplicate got %d", resp.Code)
	}
	var envelope struct {
		Data leadSubmitResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !envelope.Data.Duplicate {
		t.Fatal("expected duplicate flag")
	}
}

func TestSubmitLeadInvalidLeadType(t *testing.T) {
	payload := `{"transaction_id": "txn-1", "lead_type": "unknown"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/leads", strings.NewReader(payload))
	resp := httptest.NewRecorder()

	SubmitLead(&testLeadsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSubmitLeadMissingLeadType(t *testing.T) {
	payload := `{"transaction_id": "txn-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/leads", strings.NewReader(payload))
	resp := httptest.NewRecorder()

	SubmitLead(&testLeadsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSubmitLeadBadMoveInDate(t *testing.T) {
	payload := `{"transaction_id": "txn-1", "lead_type": "lead_submit", "move_in_by": "11/01/2026"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/leads", strings.NewReader(payload))
	resp := httptest.NewRecorder()

	SubmitLead(&testLeadsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSubmitLeadUnknownField(t *testing.T) {
	payload := `{"transaction_id": "txn-1", "lead_type": "lead_submit", "admin": true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/leads", strings.NewReader(payload))
	resp := httptest.NewRecorder()

	SubmitLead(&testLeadsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
