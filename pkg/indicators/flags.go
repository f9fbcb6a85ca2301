// Package indicators implements the rule-based red/green flag extractors for
// the three content types. Each content type owns a closed, ordered
// vocabulary of 40 red and 40 green indicators, evaluated as independent
// predicates over a precomputed evaluation context.
//
// Invariants:
// - Flag tables are package-level and fixed at compile time; an evaluation
//   always yields exactly one boolean per name.
// - Flags are not mutually exclusive; the fusion cascade relies on
//   aggregate counts, not single-signal certainty.
// - Malformed or absent input degrades a flag to false, never an error.
package indicators

import "github.com/phishguard-io/phishguard/pkg/textproc"

// Flag is one named boolean indicator from a content type's vocabulary.
type Flag struct {
	Name  string `json:"name"`
	Value bool   `json:"value"`
}

// FlagSet holds one evaluation of a content type's full vocabulary.
// Scores are always recomputed by counting, never stored, so the counts
// cannot drift from the flags.
type FlagSet struct {
	Red   []Flag `json:"red"`
	Green []Flag `json:"green"`
}

// RedScore returns the number of triggered red flags.
func (fs FlagSet) RedScore() int { return countTrue(fs.Red) }

// GreenScore returns the number of triggered green flags.
func (fs FlagSet) GreenScore() int { return countTrue(fs.Green) }

// TriggeredRed returns the names of all triggered red flags, in vocabulary order.
func (fs FlagSet) TriggeredRed() []string { return triggered(fs.Red) }

// TriggeredGreen returns the names of all triggered green flags, in vocabulary order.
func (fs FlagSet) TriggeredGreen() []string { return triggered(fs.Green) }

func countTrue(flags []Flag) int {
	n := 0
	for _, f := range flags {
		if f.Value {
			n++
		}
	}
	return n
}

func triggered(flags []Flag) []string {
	var names []string
	for _, f := range flags {
		if f.Value {
			names = append(names, f.Name)
		}
	}
	return names
}

// Artifacts carries everything the extractor derived beyond the flags:
// the inputs the fusion engine and explanation builder consult.
type Artifacts struct {
	// URLs found in the content, ordered, de-duplicated, capped at
	// MaxNestedURLs to bound the recursive classification cost.
	URLs []string

	// Keywords matched from the fixed phishing vocabulary.
	Keywords []string

	// HighPriorityKeywords is the override-weight subset.
	HighPriorityKeywords []string

	// Stats are the surface statistics of the raw content.
	Stats textproc.Statistics

	// Meta-flags, computed after the vocabulary from its own counts.
	// Explanation-only: they never participate in the cascade, so the
	// counts they summarize cannot feed back into themselves.
	MultipleRedFlags bool
	LowRiskOverall   bool
}

// MaxNestedURLs bounds how many embedded URLs are surfaced and recursively
// classified per request.
const MaxNestedURLs = 5

// capURLs truncates a URL list to the nested-classification bound.
func capURLs(urls []string) []string {
	if len(urls) > MaxNestedURLs {
		return urls[:MaxNestedURLs]
	}
	return urls
}

// evaluate runs an ordered indicator table against a context value.
func evaluate[T any](table []indicator[T], ctx *T) []Flag {
	flags := make([]Flag, len(table))
	for i, ind := range table {
		flags[i] = Flag{Name: ind.name, Value: safeCheck(ind.check, ctx)}
	}
	return flags
}

// safeCheck runs one predicate, absorbing panics from malformed input by
// degrading the flag to false. Extraction failures never abort a request.
func safeCheck[T any](check func(*T) bool, ctx *T) (v bool) {
	defer func() {
		if recover() != nil {
			v = false
		}
	}()
	return check(ctx)
}

// indicator is one named predicate in a content type's vocabulary.
type indicator[T any] struct {
	name  string
	check func(*T) bool
}
