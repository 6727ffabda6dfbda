package model

// ProofItem is a stored evidence fragment. Proof items are append-only and
// referenced by index; nothing mutates them after creation.
type ProofItem struct {
	URL             string     `json:"url"`
	SourceType      SourceKind `json:"sourceType"`
	SignalType      string     `json:"signalType"`
	SignalValue     string     `json:"signalValue"`
	EvidenceSnippet string     `json:"evidenceSnippet"`
}

// Proof signal types.
const (
	SignalPreview      = "preview"
	SignalBuying       = "buying_signal"
	SignalContactEmail = "contact_email"
	SignalContactPhone = "contact_phone"
)

// GeoVerdict is the outcome of a geo-fit check.
type GeoVerdict string

const (
	GeoAllowed   GeoVerdict = "allowed"
	GeoRejected  GeoVerdict = "rejected"
	GeoUndecided GeoVerdict = "undecided"
)

// Candidate is a search result that survived filtering.
type Candidate struct {
	ID          string      `json:"id"`
	URL         string      `json:"url"`
	Title       string      `json:"title"`
	Snippet     string      `json:"snippet"`
	SourceKind  SourceKind  `json:"sourceKind"`
	Provider    string      `json:"provider"`
	Query       string      `json:"query,omitempty"`
	QueryIndex  int         `json:"queryIndex"`
	ResultIndex int         `json:"resultIndex"`
	PageText    string      `json:"pageText,omitempty"`
	Fetched     bool        `json:"fetched"`
	GeoVerdict  GeoVerdict  `json:"geoVerdict"`
	Proofs      []ProofItem `json:"mergedProofs"`
}

// Text returns everything known about the candidate as one string.
func (c Candidate) Text() string {
	s := c.Title + "\n" + c.Snippet
	if c.PageText != "" {
		s += "\n" + c.PageText
	}
	return s
}

// ScoredCandidate is a candidate with scores, role, and classification.
type ScoredCandidate struct {
	Candidate       Candidate  `json:"candidate"`
	RelevanceScore  int        `json:"relevanceScore"`
	IntentScore     int        `json:"intentScore"`
	EntityRole      EntityRole `json:"entityRole"`
	SourceType      SourceKind `json:"sourceType"`
	HasBuyingSignal bool       `json:"hasBuyingSignal"`
	LeadType        LeadType   `json:"leadType"`
	Reason          string     `json:"reason"`
	Evidence        string     `json:"evidence"`
	ContactHint     string     `json:"contactHint"`
	// ScoredBy is "heuristic", "llm", or "merged".
	ScoredBy string `json:"scoredBy"`
	// ClassifyRule names the classification rule that fired.
	ClassifyRule string `json:"classifyRule"`
	ClassifyNote string `json:"classifyNote,omitempty"`
}

// Lead is a Hot or Warm result as returned to the caller. It exists only
// within one response.
type Lead struct {
	Title           string     `json:"title"`
	URL             string     `json:"url"`
	Company         string     `json:"company"`
	Source          string     `json:"source"`
	SourceType      SourceKind `json:"sourceType"`
	EntityRole      EntityRole `json:"entityRole"`
	RelevanceScore  int        `json:"relevanceScore"`
	IntentScore     int        `json:"intentScore"`
	HasBuyingSignal bool       `json:"hasBuyingSignal"`
	Confidence      float64    `json:"confidence"`
	LeadType        LeadType   `json:"leadType"`
	WhyMatch        string     `json:"whyMatch"`
	Evidence        string     `json:"evidence,omitempty"`
	ContactHint     string     `json:"contactHint"`
	DedupeKey       string     `json:"dedupeKey"`
	ProofRefs       []int      `json:"proofRefs"`
}

// Segment is an ICP-based suggestion returned when no leads were found.
type Segment struct {
	Title    string   `json:"title"`
	Industry string   `json:"industry"`
	Role     string   `json:"role"`
	Query    string   `json:"query"`
	LeadType LeadType `json:"leadType"`
	WhyMatch string   `json:"whyMatch"`
}
