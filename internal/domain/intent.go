package domain

import (
	"regexp"
	"strings"
)

// Intent classifies whether a query needs document retrieval or can be
// answered directly from general knowledge.
type Intent string

const (
	IntentRetrieval Intent = "retrieval"
	IntentDirect    Intent = "direct"
)

// The rule tables favor retrieval: missing document content is worse
// than an unnecessary search.
var retrievalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(study|research|trial|patient|treatment|therapy|drug|medication|dose|effect|result|finding|data|analysis|outcome|survival|risk|factor|method|procedure|diagnosis|symptom|condition|disease|cancer|tumor|stage|grade)\b`),
	regexp.MustCompile(`\b(according to|in the (study|paper|document|article|research)|based on|mentioned|discussed|reported|shown|demonstrated|indicated|found|concluded)\b`),
	regexp.MustCompile(`\b(table|figure|chart|graph|image|appendix|section|chapter|page)\b`),
	regexp.MustCompile(`\b(what (did|does|is|was|were)|how (did|does|is|was|were)|when (did|does|is|was|were)|where (did|does|is|was|were)|why (did|does|is|was|were))\b`),
	regexp.MustCompile(`\b(compare|comparison|difference|versus|vs|between|among|correlation|association|relationship)\b`),
	regexp.MustCompile(`\b(efficacy|effectiveness|safety|toxicity|adverse|side effect|contraindication|indication)\b`),
	regexp.MustCompile(`\b(percentage|percent|rate|ratio|number|count|frequency|prevalence|incidence|probability|p-value|confidence|interval|significant|statistic)\b`),
	regexp.MustCompile(`\b(pathology|histology|molecular|genetic|biomarker|protocol|guideline|recommendation|criteria|classification|scoring)\b`),
}

var directPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*(hello|hi|hey|good morning|good afternoon|good evening|thanks|thank you|bye|goodbye)\s*[.!?]*\s*$`),
	regexp.MustCompile(`\b(how are you|who are you|what can you do|help me|what is this|how does this work)\b`),
	regexp.MustCompile(`^\s*(yes|no|ok|okay|sure|maybe|perhaps)\s*[.!?]*\s*$`),
}

// ClassifyIntent applies the rule tables to a query. Direct patterns are
// checked first and kept deliberately narrow; everything else defaults
// to retrieval.
func ClassifyIntent(query string) Intent {
	q := strings.ToLower(strings.TrimSpace(query))

	for _, p := range directPatterns {
		if p.MatchString(q) {
			return IntentDirect
		}
	}
	for _, p := range retrievalPatterns {
		if p.MatchString(q) {
			return IntentRetrieval
		}
	}
	return IntentRetrieval
}
