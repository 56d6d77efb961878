package enums

import "fmt"

// SiteEventType enumerates the analytics events the marketing site records.
type SiteEventType string

const (
	SiteEventPageView             SiteEventType = "page_view"
	SiteEventFormView             SiteEventType = "form_view"
	SiteEventLeadCaptured         SiteEventType = "lead_captured"
	SiteEventConversionDispatched SiteEventType = "conversion_dispatched"
)

var validSiteEventTypes = []SiteEventType{
	SiteEventPageView,
	SiteEventFormView,
	SiteEventLeadCaptured,
	SiteEventConversionDispatched,
}

// String implements fmt.Stringer.
func (s SiteEventType) String() string {
	return string(s)
}

// IsValid reports whether the event type is recognized.
func (s SiteEventType) IsValid() bool {
	for _, candidate := range validSiteEventTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSiteEventType converts a raw string into a SiteEventType.
func ParseSiteEventType(value string) (SiteEventType, error) {
	for _, candidate := range validSiteEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid site event type %q", value)
}
