package conversions

import "context"

// ErrCredentialsNotConfigured is the result message adapters return when
// their platform has no credentials in this environment. It marks an expected
// configuration condition, not a transport failure.
const ErrCredentialsNotConfigured = "credentials not configured"

// DispatchResult is one adapter's independent outcome.
type DispatchResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Adapter translates a ConversionPayload into one platform's upload and
// reports the outcome without ever raising past its own boundary.
type Adapter interface {
	Name() string
	Dispatch(ctx context.Context, payload ConversionPayload) DispatchResult
}

func failure(msg string) DispatchResult {
	return DispatchResult{Success: false, Error: msg}
}

func success() DispatchResult {
	return DispatchResult{Success: true}
}
