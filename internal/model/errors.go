package model

import "github.com/rotisserie/eris"

// Provider failure taxonomy. Stages recover from all of these locally; they
// surface only through status codes, warnings, and limitations.
var (
	// ErrProviderTimeout means an external call lost its race with the timeout.
	ErrProviderTimeout = eris.New("provider timeout")
	// ErrProviderUnavailable means the provider is not configured or refused.
	ErrProviderUnavailable = eris.New("provider unavailable")
	// ErrMalformedResponse means the provider answered with an unusable body.
	ErrMalformedResponse = eris.New("malformed provider response")
)

// Filtering reason codes. These are expected outcomes, counted for
// diagnostics, never returned as errors.
const (
	ReasonInvalidURL         = "invalid_url"
	ReasonSiteMismatch       = "site_mismatch"
	ReasonBlockedDomain      = "blocked_domain"
	ReasonBlockedDocsSupport = "blocked_docs_support"
	ReasonBlockedPath        = "blocked_path"
	ReasonDuplicateURL       = "duplicate_url"
	ReasonSourceKind         = "source_kind_not_lead_like"
	ReasonGeoRejected        = "geo_rejected"
	ReasonGeoRejectedFetched = "geo_rejected_enriched"
	ReasonBelowThreshold     = "relevance_below_threshold"
	ReasonVendorInBuyerRun   = "vendor_in_buyer_run"
	ReasonDuplicateLead      = "duplicate_lead"
	ReasonPriorRunDuplicate  = "prior_run_duplicate"
)
