package enums

import "fmt"

// LeadType classifies the conversion event a lead submission represents. It
// selects the semantic event name reported to each advertising platform.
type LeadType string

const (
	LeadTypeLeadSubmit       LeadType = "lead_submit"
	LeadTypeScheduleTour     LeadType = "schedule_tour"
	LeadTypeBookingConfirmed LeadType = "booking_confirmed"
	LeadTypePhoneCallClick   LeadType = "phone_call_click"
	LeadTypeBrochureDownload LeadType = "brochure_download"
)

var validLeadTypes = []LeadType{
	LeadTypeLeadSubmit,
	LeadTypeScheduleTour,
	LeadTypeBookingConfirmed,
	LeadTypePhoneCallClick,
	LeadTypeBrochureDownload,
}

// String implements fmt.Stringer.
func (l LeadType) String() string {
	return string(l)
}

// IsValid reports whether the lead type is recognized.
func (l LeadType) IsValid() bool {
	for _, candidate := range validLeadTypes {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLeadType converts a raw string into a LeadType.
func ParseLeadType(value string) (LeadType, error) {
	for _, candidate := range validLeadTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lead type %q", value)
}
