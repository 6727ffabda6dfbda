package prospect

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Target count bounds.
const (
	DefaultTargetCount = 10
	MaxTargetCount     = 50
)

// Options are the recognized request options. Zero values mean "use the
// configured default".
type Options struct {
	MaxWebRequests int              `json:"maxWebRequests,omitempty"`
	TargetCount    int              `json:"targetCount,omitempty"`
	GeoScope       model.GeoScope   `json:"geoScope,omitempty"`
	Countries      []string         `json:"countries,omitempty"`
	DedupeBy       model.DedupeMode `json:"dedupeBy,omitempty"`
	Mode           model.Mode       `json:"mode,omitempty"`
	RunMode        model.RunMode    `json:"runMode,omitempty"`
	Objective      model.Objective  `json:"objective,omitempty"`
	// PriorRunID pins the run to compare against in continue/refresh mode.
	// Empty means the latest run of the same task.
	PriorRunID string `json:"priorRunId,omitempty"`
}

// Request is one prospecting request.
type Request struct {
	TaskText string  `json:"taskText"`
	Options  Options `json:"options"`
	// ProvidedURLs are ranked instead of searching when present.
	ProvidedURLs []string `json:"providedUrls,omitempty"`
}

// withDefaults fills unset options from d.
func (o Options) withDefaults(d Options) Options {
	if o.MaxWebRequests <= 0 {
		o.MaxWebRequests = d.MaxWebRequests
	}
	if o.TargetCount <= 0 {
		o.TargetCount = d.TargetCount
	}
	if o.GeoScope == "" {
		o.GeoScope = d.GeoScope
	}
	if o.DedupeBy == "" {
		o.DedupeBy = d.DedupeBy
	}
	if o.Mode == "" {
		o.Mode = d.Mode
	}
	if o.RunMode == "" {
		o.RunMode = d.RunMode
	}
	if o.Objective == "" {
		o.Objective = d.Objective
	}
	return o
}

// normalize validates the request and applies hard defaults. GeoScope and
// Objective stay empty when unset so intent extraction can detect them.
func (r Request) normalize(defaults Options) (Request, error) {
	r.TaskText = strings.TrimSpace(r.TaskText)
	if r.TaskText == "" && len(r.ProvidedURLs) == 0 {
		return r, eris.New("prospect: empty task text")
	}
	o := r.Options.withDefaults(defaults)

	var err error
	if o.GeoScope != "" {
		if o.GeoScope, err = model.ParseGeoScope(string(o.GeoScope)); err != nil {
			return r, eris.Wrap(err, "prospect: invalid options")
		}
	}
	if o.Objective != "" {
		if o.Objective, err = model.ParseObjective(string(o.Objective)); err != nil {
			return r, eris.Wrap(err, "prospect: invalid options")
		}
	}
	if o.DedupeBy == "" {
		o.DedupeBy = model.DedupeURL
	}
	if o.DedupeBy, err = model.ParseDedupeMode(string(o.DedupeBy)); err != nil {
		return r, eris.Wrap(err, "prospect: invalid options")
	}
	if o.Mode == "" {
		o.Mode = model.ModeStandard
	}
	if o.Mode, err = model.ParseMode(string(o.Mode)); err != nil {
		return r, eris.Wrap(err, "prospect: invalid options")
	}
	if o.RunMode == "" {
		o.RunMode = model.RunNew
	}
	if o.RunMode, err = model.ParseRunMode(string(o.RunMode)); err != nil {
		return r, eris.Wrap(err, "prospect: invalid options")
	}
	if o.MaxWebRequests < 0 {
		o.MaxWebRequests = 0
	}
	switch {
	case o.TargetCount <= 0:
		o.TargetCount = DefaultTargetCount
	case o.TargetCount > MaxTargetCount:
		o.TargetCount = MaxTargetCount
	}
	r.Options = o
	return r, nil
}
