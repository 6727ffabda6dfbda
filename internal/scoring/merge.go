package scoring

// Merge lays a provider assessment over a heuristic one. Each field comes
// from p when p has it, otherwise from h, so every field is always set.
func Merge(h Assessment, p *Partial) Assessment {
	if p == nil {
		return h
	}
	out := h
	taken, total := 0, 0
	take := func(ok bool) bool {
		total++
		if ok {
			taken++
		}
		return ok
	}

	if take(p.Relevance != nil) {
		out.Relevance = *p.Relevance
	}
	if take(p.Intent != nil) {
		out.Intent = *p.Intent
	}
	if take(p.Role != nil) {
		out.Role = *p.Role
	}
	if take(p.HasBuyingSignal != nil) {
		out.HasBuyingSignal = *p.HasBuyingSignal
	}
	if take(p.Reason != nil) {
		out.Reason = *p.Reason
	}
	if take(p.Evidence != nil) {
		out.Evidence = *p.Evidence
	}
	if take(p.ContactHint != nil) {
		out.ContactHint = *p.ContactHint
	}

	switch taken {
	case 0:
		out.By = ByHeuristic
	case total:
		out.By = ByLLM
	default:
		out.By = ByMerged
	}
	return out
}
