package pipeline

import (
	"regexp"
	"strings"
)

var (
	blandHooks = []string{"interesting", "thoughts", "just", "maybe", "could be"}
	vagueTerms = []string{"something", "things", "various", "some", "many"}
	tokenRE    = regexp.MustCompile(`[a-zA-Z0-9']+`)
)

// heuristicIssues runs the deterministic editor checks on a draft: bland
// opening hooks, missing question CTA, vague terms, repeated bigrams, and
// the persona's forbidden phrases.
func heuristicIssues(content string, forbiddenPhrases []string) []string {
	var issues []string
	lower := strings.ToLower(content)

	opening := lower
	if runes := []rune(lower); len(runes) > 80 {
		opening = string(runes[:80])
	}
	for _, hook := range blandHooks {
		if strings.Contains(opening, hook) {
			issues = append(issues, "Bland hook")
			break
		}
	}

	if !strings.Contains(lower, "?") {
		issues = append(issues, "Weak CTA")
	}

	for _, term := range vagueTerms {
		if strings.Contains(lower, term) {
			issues = append(issues, "Vague claim")
			break
		}
	}

	tokens := tokenRE.FindAllString(lower, -1)
	bigrams := make(map[string]int)
	repeated := false
	for i := 0; i+1 < len(tokens); i++ {
		bg := tokens[i] + " " + tokens[i+1]
		bigrams[bg]++
		if bigrams[bg] >= 2 {
			repeated = true
		}
	}
	if repeated {
		issues = append(issues, "Repetition")
	}

	for _, banned := range forbiddenPhrases {
		if strings.Contains(lower, strings.ToLower(banned)) {
			issues = append(issues, "Forbidden phrase: "+banned)
		}
	}

	return issues
}

// mergeIssues unions two issue lists preserving first-seen order.
func mergeIssues(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, issue := range append(append([]string{}, a...), b...) {
		if _, ok := seen[issue]; ok {
			continue
		}
		seen[issue] = struct{}{}
		out = append(out, issue)
	}
	return out
}
