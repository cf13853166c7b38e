package model

import "strings"

// ExternalStatus is the orchestrator's view of the site builder's free-text
// job status.
type ExternalStatus string

const (
	ExternalSucceeded ExternalStatus = "succeeded"
	ExternalFailed    ExternalStatus = "failed"
	ExternalUnknown   ExternalStatus = "unknown"
)

// ParseExternalStatus maps a raw status string from the site builder to the
// three-value local vocabulary. Anything unrecognized is Unknown.
func ParseExternalStatus(raw string) ExternalStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "succeeded":
		return ExternalSucceeded
	case "failed":
		return ExternalFailed
	default:
		return ExternalUnknown
	}
}
