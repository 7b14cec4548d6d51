package dependency

// RuleClass is one ordered logical-edge inference rule (spec §4.4).
type RuleClass struct {
	FromKeywords []string
	ToKeywords   []string
	BaseConfidence float64
}

// Rules are the ordered rule classes from spec §4.4, applied idempotently
// whenever the task set changes.
var Rules = []RuleClass{
	{
		FromKeywords:   []string{"setup", "init", "configure", "install"},
		ToKeywords:     []string{"implement", "build", "create", "develop", "test", "deploy"},
		BaseConfidence: 0.9,
	},
	{
		FromKeywords:   []string{"implement", "build", "create", "develop"},
		ToKeywords:     []string{"test", "qa", "verify"},
		BaseConfidence: 0.75,
	},
	{
		FromKeywords:   []string{"test", "qa", "verify"},
		ToKeywords:     []string{"deploy", "release", "launch", "production"},
		BaseConfidence: 0.85,
	},
	{
		FromKeywords:   []string{"design", "architect"},
		ToKeywords:     []string{"implement", "build"},
		BaseConfidence: 0.8,
	},
}

func containsAny(words []string, candidates []string) bool {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	for _, c := range candidates {
		if _, ok := set[c]; ok {
			return true
		}
	}
	return false
}

// sharedContentWords counts words in common between two keyword sets.
func sharedContentWords(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, w := range a {
		set[w] = struct{}{}
	}
	count := 0
	for _, w := range b {
		if _, ok := set[w]; ok {
			count++
		}
	}
	return count
}

// InferEdge evaluates whether fromKeywords -> toKeywords matches any rule
// class, returning the matched rule's confidence (scaled down if the
// relatedness signal - shared content words - is weak) and ok=true, or
// ok=false if no rule matches.
func InferEdge(fromKeywords, toKeywords []string) (confidence float64, ok bool) {
	shared := sharedContentWords(fromKeywords, toKeywords)
	for i, rule := range Rules {
		if !containsAny(fromKeywords, rule.FromKeywords) {
			continue
		}
		if !containsAny(toKeywords, rule.ToKeywords) {
			continue
		}
		c := rule.BaseConfidence
		if shared < 2 && (i == 1 || i == 3) {
			// Rule classes 2/4 require "shared noun phrase or >= 2 shared
			// content words" for relatedness; without it, confidence drops
			// below the default 0.7 block-assignment threshold so the edge
			// becomes advisory-only rather than blocking.
			c -= 0.25
		}
		if c < 0 {
			c = 0
		}
		if c > 1 {
			c = 1
		}
		return c, true
	}
	return 0, false
}
