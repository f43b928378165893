// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package classify

import (
	"regexp"
	"strings"
)

// MatchSet is a set of matched categories kept in category order
type MatchSet []string

// Has reports whether category is in the set
func (m MatchSet) Has(category string) bool {
	return contains(m, category)
}

// Without returns a copy of the set minus the given categories
func (m MatchSet) Without(categories ...string) MatchSet {
	var out MatchSet
	for _, c := range m {
		if !contains(categories, c) {
			out = append(out, c)
		}
	}
	return out
}

// String joins the set for reports
func (m MatchSet) String() string {
	return strings.Join(m, ", ")
}

type keyword struct {
	text  string
	exact *regexp.Regexp // set for whole-word keywords
}

func (k keyword) matches(lowered string) bool {
	if k.exact != nil {
		return k.exact.MatchString(lowered)
	}
	return strings.Contains(lowered, k.text)
}

// Matcher finds micromobility categories mentioned in free text
type Matcher struct {
	order    []string
	keywords map[string][]keyword
}

// NewMatcher compiles the keyword tables of r
func NewMatcher(r Rules) *Matcher {
	whole := make(map[string]bool, len(r.WholeWord))
	for _, w := range r.WholeWord {
		whole[strings.ToLower(w)] = true
	}

	m := &Matcher{
		order:    r.categories(),
		keywords: make(map[string][]keyword, len(r.Keywords)),
	}
	for _, cat := range m.order {
		for _, kw := range r.Keywords[cat] {
			lowered := strings.ToLower(kw)
			k := keyword{text: lowered}
			if whole[lowered] {
				k.exact = wordPattern(lowered)
			}
			m.keywords[cat] = append(m.keywords[cat], k)
		}
	}
	return m
}

// wordPattern matches kw between Unicode word boundaries so that "voi"
// does not fire inside "voice" or "övoi".
func wordPattern(kw string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(kw) + `(?:$|[^\p{L}\p{N}_])`)
}

// Find returns every category with at least one keyword in text
func (m *Matcher) Find(text string) MatchSet {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lowered := strings.ToLower(text)

	var out MatchSet
	for _, cat := range m.order {
		for _, kw := range m.keywords[cat] {
			if kw.matches(lowered) {
				out = append(out, cat)
				break
			}
		}
	}
	return out
}
