// Package model defines the values passed between pipeline stages:
// Intent → Candidate → ScoredCandidate → Lead.
package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// GeoScope is the geographic targeting policy for a run.
type GeoScope string

const (
	GeoCIS    GeoScope = "cis"
	GeoGlobal GeoScope = "global"
	GeoCustom GeoScope = "custom"
)

// Objective says whose pages the run is looking for.
type Objective string

const (
	// ObjectiveBuyers is a buyer-only run: vendor pages are dropped.
	ObjectiveBuyers Objective = "buyers"
	// ObjectiveCompetitors scans for vendors offering the same thing.
	ObjectiveCompetitors Objective = "competitors"
	// ObjectiveAny keeps both buyers and vendors.
	ObjectiveAny Objective = "any"
)

// SourceKind is the detected type of a candidate page.
type SourceKind string

const (
	SourceDictionary  SourceKind = "dictionary"
	SourceForum       SourceKind = "forum_qna"
	SourceArticle     SourceKind = "blog_article"
	SourceJob         SourceKind = "job"
	SourceTender      SourceKind = "tender"
	SourceSocialPost  SourceKind = "social_post"
	SourceDirectory   SourceKind = "directory"
	SourceCompanyPage SourceKind = "company_page"
	SourceOther       SourceKind = "other"
)

// SourceKindOrder is the evaluation order of source-kind rules.
func SourceKindOrder() []SourceKind {
	return []SourceKind{
		SourceDictionary,
		SourceForum,
		SourceArticle,
		SourceJob,
		SourceTender,
		SourceSocialPost,
		SourceDirectory,
		SourceCompanyPage,
		SourceOther,
	}
}

// IsLeadLike reports whether pages of this kind can carry a lead.
func (k SourceKind) IsLeadLike() bool {
	switch k {
	case SourceTender, SourceJob, SourceSocialPost, SourceDirectory, SourceCompanyPage:
		return true
	default:
		return false
	}
}

// IsContent reports whether the kind is editorial or reference content
// (dictionary, forum, article) that never yields a lead on its own.
func (k SourceKind) IsContent() bool {
	return k == SourceDictionary || k == SourceForum || k == SourceArticle
}

// EntityRole is who published a candidate page.
type EntityRole string

const (
	RoleBuyer     EntityRole = "buyer"
	RoleVendor    EntityRole = "vendor"
	RoleMedia     EntityRole = "media"
	RoleDirectory EntityRole = "directory"
	RoleOther     EntityRole = "other"
)

// ParseEntityRole validates a role string. The second return is false for
// unknown values.
func ParseEntityRole(s string) (EntityRole, bool) {
	switch r := EntityRole(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleBuyer, RoleVendor, RoleMedia, RoleDirectory, RoleOther:
		return r, true
	default:
		return "", false
	}
}

// LeadType is the terminal classification of a candidate.
type LeadType string

const (
	LeadHot  LeadType = "Hot"
	LeadWarm LeadType = "Warm"
	LeadDrop LeadType = "Drop"
)

// DedupeMode selects the identity used to collapse duplicate leads.
type DedupeMode string

const (
	DedupeURL         DedupeMode = "url"
	DedupeThread      DedupeMode = "thread"
	DedupeFingerprint DedupeMode = "text_fingerprint"
	DedupeMixed       DedupeMode = "mixed"
)

// Mode scales budgets and timeouts.
type Mode string

const (
	ModeQuick    Mode = "quick"
	ModeStandard Mode = "standard"
	ModeDeep     Mode = "deep"
)

// RunMode controls deduplication against a prior run.
type RunMode string

const (
	RunNew      RunMode = "new"
	RunContinue RunMode = "continue"
	RunRefresh  RunMode = "refresh"
)

// StatusCode summarizes the outcome of a run.
type StatusCode string

const (
	StatusOK                    StatusCode = "OK"
	StatusNoRelevantResults     StatusCode = "NO_RELEVANT_RESULTS"
	StatusSearchNotAvailable    StatusCode = "SEARCH_NOT_AVAILABLE"
	StatusNoWebSearchConfigured StatusCode = "NO_WEB_SEARCH_CONFIGURED"
	StatusRankProvidedList      StatusCode = "RANK_PROVIDED_LIST"
)

func oneOf[T ~string](kind, s string, allowed ...T) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(s)))
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	return "", eris.Errorf("model: unknown %s %q", kind, s)
}

// ParseGeoScope validates a geo scope.
func ParseGeoScope(s string) (GeoScope, error) {
	return oneOf("geo scope", s, GeoCIS, GeoGlobal, GeoCustom)
}

// ParseObjective validates an objective.
func ParseObjective(s string) (Objective, error) {
	return oneOf("objective", s, ObjectiveBuyers, ObjectiveCompetitors, ObjectiveAny)
}

// ParseDedupeMode validates a dedupe mode.
func ParseDedupeMode(s string) (DedupeMode, error) {
	return oneOf("dedupe mode", s, DedupeURL, DedupeThread, DedupeFingerprint, DedupeMixed)
}

// ParseMode validates a run mode preset.
func ParseMode(s string) (Mode, error) {
	return oneOf("mode", s, ModeQuick, ModeStandard, ModeDeep)
}

// ParseRunMode validates a run mode.
func ParseRunMode(s string) (RunMode, error) {
	return oneOf("run mode", s, RunNew, RunContinue, RunRefresh)
}
