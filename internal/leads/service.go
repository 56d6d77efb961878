package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sagebrookliving/sagebrook-backend/internal/analytics"
	"github.com/sagebrookliving/sagebrook-backend/internal/conversions"
	"github.com/sagebrookliving/sagebrook-backend/internal/notifications"
	"github.com/sagebrookliving/sagebrook-backend/pkg/config"
	"github.com/sagebrookliving/sagebrook-backend/pkg/db"
	"github.com/sagebrookliving/sagebrook-backend/pkg/db/models"
	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
	pkgerrors "github.com/sagebrookliving/sagebrook-backend/pkg/errors"
	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
	"github.com/sagebrookliving/sagebrook-backend/pkg/pagination"
)

const transactionIDUniqueConstraint = "leads_transaction_id_key"

type conversionDispatcher interface {
	Dispatch(ctx context.Context, payload conversions.ConversionPayload) (conversions.Outcome, error)
}

type staffNotifier interface {
	NotifyUsers(ctx context.Context, userIDs []uuid.UUID, input notifications.NotifyInput) error
}

type staffDirectory interface {
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)
}

type sitePublisher interface {
	PublishSiteEvent(ctx context.Context, eventType enums.SiteEventType, payload any) (string, error)
}

// Service defines lead capture and funnel operations.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.LeadStatus) error
	ScrubExpiredPII(ctx context.Context, cutoff time.Time, batch int) (int64, error)
}

type service struct {
	repo       Repository
	dispatcher conversionDispatcher
	notifier   staffNotifier
	directory  staffDirectory
	events     sitePublisher
	cfg        config.ConversionsConfig
	logg       *logger.Logger
	now        func() time.Time
}

// SubmitInput is everything the public form handler collects for one lead.
type SubmitInput struct {
	TransactionID string
	LeadType      enums.LeadType
	CommunityID   *uuid.UUID
	CommunityName string

	FirstName string
	LastName  string
	Email     string
	Phone     string
	Message   string

	CareTypes []string
	MoveInBy  *time.Time

	Value    *decimal.Decimal
	Currency string

	SourceURL       string
	ClientIP        string
	ClientUserAgent string
	AdTrackingOK    bool

	Tracking conversions.Tracking
}

// SubmitResult reports the saved lead and, when dispatch ran, the
// per-platform outcome.
type SubmitResult struct {
	Lead       *models.Lead
	Outcome    *conversions.Outcome
	Duplicate  bool
	Dispatched bool
}

// ListParams configures filtered cursor pagination over leads.
type ListParams struct {
	Status      *enums.LeadStatus
	LeadType    *enums.LeadType
	CommunityID *uuid.UUID
	Limit       int
	Cursor      string
}

// ListResult wraps returned leads and the cursor for the next page.
type ListResult struct {
	Items  []models.Lead `json:"items"`
	Cursor string        `json:"cursor"`
}

// NewService wires lead capture dependencies. The notifier, directory, and
// events publisher are best-effort side channels and may be nil in workers
// that only need the scrub path.
func NewService(
	repo Repository,
	dispatcher conversionDispatcher,
	notifier staffNotifier,
	directory staffDirectory,
	events sitePublisher,
	cfg config.ConversionsConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "leads repository required")
	}
	if dispatcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "conversion dispatcher required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:       repo,
		dispatcher: dispatcher,
		notifier:   notifier,
		directory:  directory,
		events:     events,
		cfg:        cfg,
		logg:       logg,
		now:        time.Now,
	}, nil
}

// Submit persists the lead and only then reports the conversion. The save is
// the source of truth: dispatch, notifications, and analytics are best-effort
// and never fail a request once the row is committed.
func (s *service) Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	if err := s.validateSubmit(input); err != nil {
		return nil, err
	}

	value, currency, err := s.resolveValue(input)
	if err != nil {
		return nil, err
	}

	transactionID := strings.TrimSpace(input.TransactionID)
	if transactionID == "" {
		transactionID = uuid.NewString()
	}

	lead := s.buildLead(input, transactionID, value, currency)
	if err := s.repo.Create(ctx, lead); err != nil {
		if db.IsUniqueViolation(err, transactionIDUniqueConstraint) {
			return s.resolveDuplicate(ctx, transactionID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save lead")
	}

	logCtx := s.logg.WithLeadID(ctx, lead.ID.String())
	s.logg.Info(logCtx, "lead saved")

	result := &SubmitResult{Lead: lead}
	if input.AdTrackingOK {
		s.dispatchConversion(logCtx, lead, input, result)
	} else {
		s.logg.Info(logCtx, "ad tracking declined, conversion dispatch skipped")
	}

	s.publishLeadCaptured(logCtx, lead, input)
	s.notifyStaff(logCtx, lead)
	return result, nil
}

func (s *service) validateSubmit(input SubmitInput) error {
	if !input.LeadType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "valid lead type required")
	}
	if input.LeadType != enums.LeadTypePhoneCallClick &&
		strings.TrimSpace(input.Email) == "" && strings.TrimSpace(input.Phone) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email or phone required")
	}
	if input.Value != nil && input.Value.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "lead value must be positive")
	}
	return nil
}

func (s *service) resolveValue(input SubmitInput) (decimal.Decimal, enums.Currency, error) {
	value := decimal.Zero
	if input.Value != nil {
		value = *input.Value
	} else {
		parsed, err := decimal.NewFromString(s.cfg.DefaultLeadValue)
		if err != nil {
			return decimal.Zero, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "default lead value misconfigured")
		}
		value = parsed
	}

	raw := strings.TrimSpace(input.Currency)
	if raw == "" {
		raw = s.cfg.DefaultCurrency
	}
	currency, err := enums.ParseCurrency(raw)
	if err != nil {
		return decimal.Zero, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
	}
	return value, currency, nil
}

func (s *service) buildLead(input SubmitInput, transactionID string, value decimal.Decimal, currency enums.Currency) *models.Lead {
	lead := &models.Lead{
		TransactionID: transactionID,
		LeadType:      input.LeadType,
		CommunityID:   input.CommunityID,
		CareTypes:     pq.StringArray(input.CareTypes),
		MoveInBy:      input.MoveInBy,
		Value:         value,
		Currency:      currency,
		AdTrackingOK:  input.AdTrackingOK,
		Status:        enums.LeadStatusNew,
	}
	lead.FirstName = optional(input.FirstName)
	lead.LastName = optional(input.LastName)
	lead.Email = optional(input.Email)
	lead.Phone = optional(input.Phone)
	lead.Message = optional(input.Message)
	lead.SourceURL = optional(input.SourceURL)
	lead.ClientIP = optional(input.ClientIP)
	lead.ClientUserAgent = optional(input.ClientUserAgent)
	lead.FBP = optional(input.Tracking.FBP)
	lead.FBC = optional(input.Tracking.FBC)
	return lead
}

// resolveDuplicate handles a transaction id collision. The same logical
// conversion was already captured, so the original row is returned and no
// second dispatch happens.
func (s *service) resolveDuplicate(ctx context.Context, transactionID string) (*SubmitResult, error) {
	existing, err := s.repo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load duplicate lead")
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"lead_id":        existing.ID.String(),
		"transaction_id": transactionID,
	})
	s.logg.Info(logCtx, "duplicate lead submission ignored")
	return &SubmitResult{Lead: existing, Duplicate: true}, nil
}

func (s *service) dispatchConversion(ctx context.Context, lead *models.Lead, input SubmitInput, result *SubmitResult) {
	tracking := input.Tracking
	tracking.ClientIPAddress = firstNonEmpty(tracking.ClientIPAddress, input.ClientIP)
	tracking.ClientUserAgent = firstNonEmpty(tracking.ClientUserAgent, input.ClientUserAgent)
	tracking.EventSourceURL = firstNonEmpty(tracking.EventSourceURL, input.SourceURL)

	payload, err := conversions.BuildPayload(conversions.BuildInput{
		TransactionID: lead.TransactionID,
		LeadType:      lead.LeadType,
		Value:         lead.Value,
		Currency:      lead.Currency,
		Email:         input.Email,
		Phone:         input.Phone,
		CommunityID:   lead.CommunityID,
		CommunityName: input.CommunityName,
		CareType:      firstCareType(input.CareTypes),
		Tracking:      tracking,
	})
	if err != nil {
		s.logg.Error(ctx, "conversion payload rejected", err)
		return
	}

	outcome, err := s.dispatcher.Dispatch(ctx, payload)
	if err != nil {
		s.logg.Error(ctx, "conversion dispatch rejected", err)
		return
	}

	dispatchedAt := s.now().UTC()
	if err := s.repo.MarkDispatched(ctx, lead.ID, dispatchedAt); err != nil {
		s.logg.Error(ctx, "mark lead dispatched", err)
	} else {
		lead.DispatchedAt = &dispatchedAt
	}

	result.Outcome = &outcome
	result.Dispatched = true
	s.publishConversionDispatched(ctx, lead, outcome, dispatchedAt)
}

func (s *service) publishLeadCaptured(ctx context.Context, lead *models.Lead, input SubmitInput) {
	if s.events == nil {
		return
	}
	event := analytics.LeadCapturedEvent{
		LeadID:        lead.ID.String(),
		TransactionID: lead.TransactionID,
		LeadType:      lead.LeadType.String(),
		Value:         lead.Value.String(),
		Currency:      lead.Currency.String(),
		HasEmail:      strings.TrimSpace(input.Email) != "",
		HasPhone:      strings.TrimSpace(input.Phone) != "",
		SourceURL:     lead.SourceURL,
		UTMSource:     optional(input.Tracking.UTMSource),
		UTMMedium:     optional(input.Tracking.UTMMedium),
		UTMCampaign:   optional(input.Tracking.UTMCampaign),
	}
	if lead.CommunityID != nil {
		id := lead.CommunityID.String()
		event.CommunityID = &id
	}
	if _, err := s.events.PublishSiteEvent(ctx, enums.SiteEventLeadCaptured, event); err != nil {
		s.logg.Error(ctx, "publish lead captured event", err)
	}
}

func (s *service) publishConversionDispatched(ctx context.Context, lead *models.Lead, outcome conversions.Outcome, at time.Time) {
	if s.events == nil {
		return
	}
	event := analytics.ConversionDispatchedEvent{
		LeadID:        lead.ID.String(),
		TransactionID: lead.TransactionID,
		LeadType:      lead.LeadType.String(),
		Value:         lead.Value.String(),
		Currency:      lead.Currency.String(),
		DispatchedAt:  at,
		Outcomes: []analytics.PlatformOutcome{
			{Platform: "google_ads", Success: outcome.Google.Success, Error: outcome.Google.Error},
			{Platform: "meta", Success: outcome.Meta.Success, Error: outcome.Meta.Error},
		},
	}
	if _, err := s.events.PublishSiteEvent(ctx, enums.SiteEventConversionDispatched, event); err != nil {
		s.logg.Error(ctx, "publish conversion dispatched event", err)
	}
}

func (s *service) notifyStaff(ctx context.Context, lead *models.Lead) {
	if s.notifier == nil || s.directory == nil {
		return
	}
	userIDs, err := s.directory.ListActiveIDs(ctx)
	if err != nil {
		s.logg.Error(ctx, "list staff for lead notification", err)
		return
	}
	if len(userIDs) == 0 {
		return
	}

	link := fmt.Sprintf("/admin/leads/%s", lead.ID)
	err = s.notifier.NotifyUsers(ctx, userIDs, notifications.NotifyInput{
		Type:    enums.NotificationNewLead,
		Title:   "New lead",
		Message: fmt.Sprintf("A new %s lead was captured", lead.LeadType),
		Link:    &link,
	})
	if err != nil {
		s.logg.Error(ctx, "notify staff of new lead", err)
	}
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lead id required")
	}
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lead")
	}
	return lead, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listLeadsParams{
		Status:      params.Status,
		LeadType:    params.LeadType,
		CommunityID: params.CommunityID,
		Limit:       params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list leads")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.LeadStatus) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "lead id required")
	}
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "valid lead status required")
	}

	found, err := s.repo.UpdateStatus(ctx, id, status, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update lead status")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
	}
	return nil
}

func (s *service) ScrubExpiredPII(ctx context.Context, cutoff time.Time, batch int) (int64, error) {
	if batch <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "scrub batch must be positive")
	}
	count, err := s.repo.ScrubPIIBefore(ctx, cutoff, batch)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scrub lead pii")
	}
	return count, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstCareType(careTypes []string) string {
	if len(careTypes) == 0 {
		return ""
	}
	return careTypes[0]
}
