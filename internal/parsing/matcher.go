package parsing

import "regexp"

// Matcher finds candidate substrings in a block of text.
// Candidates are returned in the order they appear in the text.
type Matcher interface {
	Match(text string) []string
}

// regexMatcher yields capture group `group` of every match of re.
type regexMatcher struct {
	re    *regexp.Regexp
	group int
	// first stops after the first match
	first bool
	// notFollowedBy rejects a match when the text right after it matches.
	// RE2 has no lookahead so the check runs after the fact.
	notFollowedBy *regexp.Regexp
}

func capture(expr string) *regexMatcher {
	return &regexMatcher{re: regexp.MustCompile(expr), group: 1}
}

func whole(expr string) *regexMatcher {
	return &regexMatcher{re: regexp.MustCompile(expr)}
}

func (m *regexMatcher) firstOnly() *regexMatcher {
	m.first = true
	return m
}

func (m *regexMatcher) unless(expr string) *regexMatcher {
	m.notFollowedBy = regexp.MustCompile(`\A(?:` + expr + `)`)
	return m
}

// Match implements Matcher.
func (m *regexMatcher) Match(text string) []string {
	n := -1
	if m.first && m.notFollowedBy == nil {
		n = 1
	}

	var out []string
	for _, loc := range m.re.FindAllStringSubmatchIndex(text, n) {
		if m.notFollowedBy != nil && m.notFollowedBy.MatchString(text[loc[1]:]) {
			continue
		}
		start, end := loc[2*m.group], loc[2*m.group+1]
		if start < 0 {
			continue
		}
		out = append(out, text[start:end])
		if m.first {
			break
		}
	}
	return out
}

// matchAll runs every matcher in order and concatenates their candidates.
func matchAll(matchers []Matcher, text string) []string {
	var out []string
	for _, m := range matchers {
		out = append(out, m.Match(text)...)
	}
	return out
}
