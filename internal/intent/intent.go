// Package intent turns a free-text prospecting request into a structured
// model.Intent. A text-generation provider is tried first; any failure falls
// back to lexical extraction, so Extract always returns a usable intent.
package intent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/llm"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/refdata"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/textnorm"
)

// Hints carry caller-supplied values that take precedence over extraction.
type Hints struct {
	GeoScope  model.GeoScope
	Countries []string
	Objective model.Objective
	// Prior is the intent of an earlier run of the same task; its non-empty
	// fields replace lexical defaults.
	Prior *model.Intent
}

// Warning reports that the provider path was not used.
type Warning struct {
	Fallback bool   `json:"fallback"`
	Reason   string `json:"reason"`
}

// Extractor extracts intents.
type Extractor struct {
	gen     llm.Generator
	data    *refdata.Data
	timeout time.Duration
}

// NewExtractor creates an Extractor. A nil gen always uses the lexical path.
func NewExtractor(gen llm.Generator, data *refdata.Data, timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = model.PresetFor(model.ModeStandard).IntentTimeout
	}
	return &Extractor{gen: gen, data: data, timeout: timeout}
}

// Extract returns the intent for text. The warning is nil when the provider
// answered with a usable reply.
func (e *Extractor) Extract(ctx context.Context, text string, hints Hints) (model.Intent, *Warning) {
	log := zap.L().With(zap.String("stage", "intent"))

	defaults := Lexical(text, hints, e.data)
	if hints.Prior != nil {
		defaults = overlayPrior(defaults, *hints.Prior, hints)
	}

	if e.gen == nil {
		return withFallbackNote(defaults, resilience.CodeUnavailable), &Warning{Fallback: true, Reason: resilience.CodeUnavailable}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	res, err := e.gen.Generate(callCtx, llm.Request{
		System:      systemPrompt,
		Prompt:      "Request:\n" + text,
		Schema:      intentSchema,
		MaxTokens:   1024,
		CacheSystem: true,
	})
	var r reply
	if err == nil {
		err = llm.Decode(res, &r)
	}
	if err != nil {
		code := resilience.Code(err)
		log.Warn("intent: provider failed, using lexical extraction",
			zap.String("provider", e.gen.Name()),
			zap.String("code", code),
			zap.Error(err),
		)
		return withFallbackNote(defaults, code), &Warning{Fallback: true, Reason: code}
	}

	merged := merge(defaults, r, hints)
	log.Debug("intent: extracted",
		zap.String("offer", merged.Offer.ProductOrService),
		zap.Int("keywords", len(merged.Offer.Keywords)),
		zap.String("geo_scope", string(merged.ICP.GeoScope)),
	)
	return merged, nil
}

func withFallbackNote(in model.Intent, code string) model.Intent {
	in.AssumptionsApplied = append(in.AssumptionsApplied, fmt.Sprintf("intent extracted lexically (%s)", code))
	return in.Normalized()
}

// pick returns override when it has items, else base.
func pick(base, override []string) []string {
	if len(textnorm.DedupeList(override, 0, 0)) > 0 {
		return override
	}
	return base
}

func pickString(base, override string) string {
	if textnorm.Normalize(override) != "" {
		return override
	}
	return base
}

// merge lays a provider reply over lexical defaults. Non-empty reply fields
// win; hints win over both. The task text and detected language always come
// from the defaults.
func merge(defaults model.Intent, r reply, hints Hints) model.Intent {
	out := defaults
	out.Offer.ProductOrService = pickString(defaults.Offer.ProductOrService, r.ProductOrService)
	out.Offer.Keywords = pick(defaults.Offer.Keywords, r.Keywords)
	out.Offer.Synonyms = pick(defaults.Offer.Synonyms, r.Synonyms)
	out.Offer.Domains = pick(defaults.Offer.Domains, r.Domains)
	out.ICP.Geo = pick(defaults.ICP.Geo, r.Geo)
	out.ICP.CompanySize = pickString(defaults.ICP.CompanySize, r.CompanySize)
	out.ICP.Industries = pick(defaults.ICP.Industries, r.Industries)
	out.ICP.Roles = pick(defaults.ICP.Roles, r.Roles)
	out.Constraints.MustHave = pick(defaults.Constraints.MustHave, r.MustHave)
	out.Constraints.MustNotHave = pick(defaults.Constraints.MustNotHave, r.MustNotHave)

	if scope, err := model.ParseGeoScope(r.GeoScope); err == nil {
		out.ICP.GeoScope = scope
		if scope == model.GeoCustom {
			out.ICP.Countries = pick(defaults.ICP.Countries, r.Countries)
		}
	}

	if signals := splitByScript(r.BuyingSignals); len(signals.RU)+len(signals.EN) > 0 {
		out.BuyingSignalLexicon = model.Lexicon{
			RU: pick(defaults.BuyingSignalLexicon.RU, signals.RU),
			EN: pick(defaults.BuyingSignalLexicon.EN, signals.EN),
		}
	}
	if neg := splitByScript(r.Negatives); len(neg.RU)+len(neg.EN) > 0 {
		out.NegativeLexicon = neg
	}

	if len(r.Industries) > 0 || len(r.Roles) > 0 {
		out.AssumptionsApplied = dropNote(out.AssumptionsApplied, "default industries and roles applied")
	}
	applyHints(&out, hints)
	return out.Normalized()
}

func dropNote(notes []string, note string) []string {
	out := notes[:0:0]
	for _, n := range notes {
		if n != note {
			out = append(out, n)
		}
	}
	return out
}

// overlayPrior reuses the non-empty fields of a prior intent.
func overlayPrior(defaults, prior model.Intent, hints Hints) model.Intent {
	return merge(defaults, reply{
		ProductOrService: prior.Offer.ProductOrService,
		Keywords:         prior.Offer.Keywords,
		Synonyms:         prior.Offer.Synonyms,
		Domains:          prior.Offer.Domains,
		Geo:              prior.ICP.Geo,
		GeoScope:         string(prior.ICP.GeoScope),
		Countries:        prior.ICP.Countries,
		CompanySize:      prior.ICP.CompanySize,
		Industries:       prior.ICP.Industries,
		Roles:            prior.ICP.Roles,
		MustHave:         prior.Constraints.MustHave,
		MustNotHave:      prior.Constraints.MustNotHave,
		BuyingSignals:    prior.BuyingSignalLexicon.All(),
		Negatives:        prior.NegativeLexicon.All(),
	}, hints)
}
