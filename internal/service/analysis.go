package service

import "strings"

// QueryIntent is the coarse category a query falls into. It steers
// nothing on its own yet but is surfaced in responses and logs.
type QueryIntent string

const (
	IntentDefinition QueryIntent = "definition"
	IntentProcedure  QueryIntent = "procedure"
	IntentTemporal   QueryIntent = "temporal"
	IntentRegulatory QueryIntent = "regulatory"
	IntentGeneral    QueryIntent = "general"
)

// QueryComplexity buckets queries by size.
type QueryComplexity string

const (
	ComplexitySimple   QueryComplexity = "simple"
	ComplexityModerate QueryComplexity = "moderate"
	ComplexityComplex  QueryComplexity = "complex"
)

const maxQueryVariants = 3

// QueryAnalysis is the pre-retrieval breakdown of a query.
type QueryAnalysis struct {
	Tokens     []string        `json:"tokens"`
	Intent     QueryIntent     `json:"intent"`
	Complexity QueryComplexity `json:"complexity"`
	// Variants are reformulations of the query; the first entry is
	// always the original text.
	Variants []string `json:"variants"`
}

var intentMarkers = []struct {
	intent QueryIntent
	words  []string
}{
	{IntentDefinition, []string{"what", "define", "defines", "definition", "meaning", "means"}},
	{IntentProcedure, []string{"how", "steps", "step", "procedure", "process", "calculate", "compute"}},
	{IntentTemporal, []string{"when", "date", "dates", "deadline", "deadlines", "effective", "timeline"}},
	{IntentRegulatory, []string{"regulation", "regulations", "regulatory", "requirement", "requirements", "compliance", "rule", "rules"}},
}

// querySynonyms drive variant generation. One substitution per variant.
var querySynonyms = map[string]string{
	"capital":     "equity",
	"requirement": "rule",
	"bank":        "institution",
	"banks":       "institutions",
	"risk":        "exposure",
	"report":      "filing",
	"reporting":   "filing",
	"deadline":    "due date",
	"regulation":  "rule",
	"guideline":   "standard",
}

// AnalyzeQuery tokenizes, classifies, and reformulates a query. The
// output is deterministic for a given input.
func AnalyzeQuery(query string) QueryAnalysis {
	rawTokens := strings.Fields(strings.ToLower(query))
	tokens := make([]string, 0, len(rawTokens))
	for _, t := range rawTokens {
		tokens = append(tokens, strings.Trim(t, `.,;:!?"'()[]{}`))
	}

	return QueryAnalysis{
		Tokens:     tokens,
		Intent:     classifyIntent(tokens),
		Complexity: classifyComplexity(tokens),
		Variants:   buildVariants(query, tokens),
	}
}

func classifyIntent(tokens []string) QueryIntent {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	for _, m := range intentMarkers {
		for _, w := range m.words {
			if set[w] {
				return m.intent
			}
		}
	}
	return IntentGeneral
}

func classifyComplexity(tokens []string) QueryComplexity {
	significant := 0
	for _, t := range tokens {
		if len(t) > 3 {
			significant++
		}
	}
	switch {
	case len(tokens) > 15 || significant > 8:
		return ComplexityComplex
	case len(tokens) > 8 || significant > 4:
		return ComplexityModerate
	default:
		return ComplexitySimple
	}
}

// buildVariants emits up to maxQueryVariants reformulations, each
// swapping a single token for a synonym. The original query leads.
func buildVariants(query string, tokens []string) []string {
	variants := []string{query}
	seen := map[string]bool{query: true}

	for _, t := range tokens {
		if len(variants) >= maxQueryVariants {
			break
		}
		syn, ok := querySynonyms[t]
		if !ok {
			continue
		}
		v := replaceWord(query, t, syn)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		variants = append(variants, v)
	}
	return variants
}

// replaceWord swaps the first whole-word, case-insensitive occurrence
// of old in query with new, preserving the rest of the text.
func replaceWord(query, old, new string) string {
	fields := strings.Fields(query)
	for i, f := range fields {
		if strings.Trim(strings.ToLower(f), `.,;:!?"'()[]{}`) == old {
			fields[i] = new
			return strings.Join(fields, " ")
		}
	}
	return ""
}
