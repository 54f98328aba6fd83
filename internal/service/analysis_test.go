package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeQuery_Intent(t *testing.T) {
	cases := []struct {
		query string
		want  QueryIntent
	}{
		{"what is tier one capital", IntentDefinition},
		{"how to calculate the leverage ratio", IntentProcedure},
		{"when is the filing deadline", IntentTemporal},
		{"liquidity coverage requirements for banks", IntentRegulatory},
		{"basel framework overview", IntentGeneral},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			assert.Equal(t, tc.want, AnalyzeQuery(tc.query).Intent)
		})
	}
}

func TestAnalyzeQuery_Complexity(t *testing.T) {
	assert.Equal(t, ComplexitySimple, AnalyzeQuery("basel capital").Complexity)

	moderate := AnalyzeQuery("liquidity coverage ratio calculation under stressed market conditions")
	assert.Equal(t, ComplexityModerate, moderate.Complexity)

	complexQuery := "explain the complete procedure for calculating risk weighted assets " +
		"under the standardized approach including all applicable transitional arrangements"
	assert.Equal(t, ComplexityComplex, AnalyzeQuery(complexQuery).Complexity)
}

func TestAnalyzeQuery_Variants(t *testing.T) {
	a := AnalyzeQuery("capital requirement for banks")

	require.NotEmpty(t, a.Variants)
	assert.Equal(t, "capital requirement for banks", a.Variants[0])
	assert.LessOrEqual(t, len(a.Variants), maxQueryVariants)
	// "capital" and "requirement" both have synonyms; the cap stops there.
	assert.Contains(t, a.Variants, "equity requirement for banks")
	assert.Contains(t, a.Variants, "capital rule for banks")
}

func TestAnalyzeQuery_VariantsDeterministic(t *testing.T) {
	first := AnalyzeQuery("capital requirement deadline")
	second := AnalyzeQuery("capital requirement deadline")
	assert.Equal(t, first, second)
}

func TestAnalyzeQuery_OriginalOnlyWhenNoSynonyms(t *testing.T) {
	a := AnalyzeQuery("liquidity coverage ratio")
	assert.Equal(t, []string{"liquidity coverage ratio"}, a.Variants)
}

func TestAnalyzeQuery_TokensLowercasedAndTrimmed(t *testing.T) {
	a := AnalyzeQuery("What is Basel III?")
	assert.Equal(t, []string{"what", "is", "basel", "iii"}, a.Tokens)
}
