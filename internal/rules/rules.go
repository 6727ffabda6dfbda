// Package rules evaluates ordered (predicate, outcome) tables where the first
// matching rule wins. Source-kind detection and lead classification are both
// expressed as tables for this resolver.
package rules

// Rule pairs a predicate over I with the outcome it yields.
type Rule[I, O any] struct {
	Name    string
	Match   func(I) bool
	Outcome O
}

// Table is an ordered list of rules.
type Table[I, O any] []Rule[I, O]

// First returns the outcome and name of the first rule whose predicate
// matches in. When nothing matches it returns fallback and an empty name.
func First[I, O any](table Table[I, O], in I, fallback O) (O, string) {
	for _, r := range table {
		if r.Match != nil && r.Match(in) {
			return r.Outcome, r.Name
		}
	}
	return fallback, ""
}
