// Package dedupe removes repeated leads within a run and against a prior
// run's output, and diffs key sets between runs.
package dedupe

import (
	"crypto/sha1" //nolint:gosec // fingerprint, not a security boundary
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/textnorm"
)

const (
	fingerprintTokens = 64
	fingerprintHex    = 16
)

// Fingerprint hashes the first 64 normalized tokens of text. Texts that
// differ only in case, punctuation or spacing share a fingerprint.
func Fingerprint(text string) string {
	toks := textnorm.Tokens(text)
	if len(toks) > fingerprintTokens {
		toks = toks[:fingerprintTokens]
	}
	h := sha1.Sum([]byte(strings.Join(toks, " "))) //nolint:gosec
	return fmt.Sprintf("%x", h)[:fingerprintHex]
}

func evidenceText(l model.Lead) string {
	if strings.TrimSpace(l.Evidence) != "" {
		return l.Evidence
	}
	return l.Title + " " + l.WhyMatch
}

// Key computes the dedupe key of l under mode. URL modes fall back to the
// fingerprint when the URL does not parse.
func Key(mode model.DedupeMode, l model.Lead) string {
	switch mode {
	case model.DedupeThread:
		if u, err := textnorm.ThreadURL(l.URL); err == nil {
			return u
		}
	case model.DedupeFingerprint:
		return "fp:" + Fingerprint(evidenceText(l))
	case model.DedupeMixed:
		if strings.TrimSpace(l.URL) != "" {
			if u, err := textnorm.CanonicalURL(l.URL); err == nil {
				return u
			}
		}
	default:
		if u, err := textnorm.CanonicalURL(l.URL); err == nil {
			return u
		}
	}
	return "fp:" + Fingerprint(evidenceText(l))
}

// SafetyKey is canonical URL plus normalized title. It is applied on top of
// the mode key so two leads never show the same page under the same title.
func SafetyKey(l model.Lead) string {
	u, err := textnorm.CanonicalURL(l.URL)
	if err != nil {
		u = strings.TrimSpace(l.URL)
	}
	return u + "|" + textnorm.Normalize(l.Title)
}

// Dropped is a lead removed as a duplicate.
type Dropped struct {
	Lead   model.Lead
	Key    string
	Reason string
}

// Deduper filters leads for one run. It is not safe for concurrent use.
type Deduper struct {
	mode  model.DedupeMode
	prior map[string]struct{}
}

// New creates a Deduper. priorKeys are the keys of a previous run's leads;
// pass nil for a fresh run.
func New(mode model.DedupeMode, priorKeys []string) *Deduper {
	if mode == "" {
		mode = model.DedupeURL
	}
	prior := make(map[string]struct{}, len(priorKeys))
	for _, k := range priorKeys {
		if k != "" {
			prior[k] = struct{}{}
		}
	}
	return &Deduper{mode: mode, prior: prior}
}

// Mode returns the key mode.
func (d *Deduper) Mode() model.DedupeMode { return d.mode }

// Key computes the key of l under the deduper's mode.
func (d *Deduper) Key(l model.Lead) string { return Key(d.mode, l) }

// Filter keeps the first lead per key in input order, dropping repeats and
// leads already seen in the prior run. Kept leads get their DedupeKey set.
func (d *Deduper) Filter(leads []model.Lead) ([]model.Lead, []Dropped) {
	idx, keys, dropped := d.Select(leads)
	kept := make([]model.Lead, len(idx))
	for i, j := range idx {
		kept[i] = leads[j]
		kept[i].DedupeKey = keys[i]
	}
	return kept, dropped
}

// Select is Filter for callers that track leads by position: it returns the
// indexes of the kept leads and their keys.
func (d *Deduper) Select(leads []model.Lead) ([]int, []string, []Dropped) {
	seen := make(map[string]struct{}, len(leads))
	seenSafety := make(map[string]struct{}, len(leads))
	var (
		idx     []int
		keys    []string
		dropped []Dropped
	)
	for i, l := range leads {
		key := d.Key(l)
		if _, ok := d.prior[key]; ok {
			dropped = append(dropped, Dropped{Lead: l, Key: key, Reason: model.ReasonPriorRunDuplicate})
			continue
		}
		safety := SafetyKey(l)
		_, dupKey := seen[key]
		_, dupSafety := seenSafety[safety]
		if dupKey || dupSafety {
			dropped = append(dropped, Dropped{Lead: l, Key: key, Reason: model.ReasonDuplicateLead})
			continue
		}
		seen[key] = struct{}{}
		seenSafety[safety] = struct{}{}
		idx = append(idx, i)
		keys = append(keys, key)
	}
	return idx, keys, dropped
}

// Diff lists keys added and removed between two runs.
type Diff struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// Compare returns the keys in current but not prior and vice versa, sorted.
func Compare(prior, current []string) Diff {
	p := toSet(prior)
	c := toSet(current)
	diff := Diff{Added: []string{}, Removed: []string{}}
	for k := range c {
		if _, ok := p[k]; !ok {
			diff.Added = append(diff.Added, k)
		}
	}
	for k := range p {
		if _, ok := c[k]; !ok {
			diff.Removed = append(diff.Removed, k)
		}
	}
	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	return diff
}

func toSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}
