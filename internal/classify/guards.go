// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package classify

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"strada-check/internal/dataset"
)

// Guard names used in statistics
const (
	GuardSolo             = "solo"
	GuardElementRef       = "element_ref"
	GuardSubgroupXref     = "subgroup_xref"
	GuardPartnerExclusion = "partner_exclusion"
	GuardPerPerson        = "per_person"
)

// guards disambiguate keyword matches when several cyclists share a crash
// narrative. They never mutate their inputs.
type guards struct {
	rules      Rules
	matcher    *Matcher
	elementRef *regexp.Regexp
}

func newGuards(r Rules, m *Matcher) *guards {
	g := &guards{rules: r, matcher: m}
	if len(r.ElementRefWords) > 0 {
		words := make([]string, len(r.ElementRefWords))
		for i, w := range r.ElementRefWords {
			words[i] = regexp.QuoteMeta(strings.ToLower(w))
		}
		g.elementRef = regexp.MustCompile(
			`(?:^|[^\p{L}\p{N}_])((?:` + strings.Join(words, "|") + `)\s*(\d+)\s*\([^)]*\))`)
	}
	return g
}

// normalizeElementRef turns "2", "2.0" or " 02 " into "2"
func normalizeElementRef(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f != math.Trunc(f) || f < 0 {
		return ""
	}
	return strconv.Itoa(int(f))
}

// elementReference restricts matching to the narrative segment that starts
// at "<role> <ref> (<description>)" and runs to the next such reference.
func (g *guards) elementReference(text, ref string) MatchSet {
	ref = normalizeElementRef(ref)
	if g.elementRef == nil || ref == "" {
		return nil
	}
	lowered := strings.ToLower(text)
	refs := g.elementRef.FindAllStringSubmatchIndex(lowered, -1)
	for i, loc := range refs {
		n := strings.TrimLeft(lowered[loc[4]:loc[5]], "0")
		if n == "" {
			n = "0"
		}
		if n != ref {
			continue
		}
		end := len(lowered)
		if i+1 < len(refs) {
			end = refs[i+1][2]
		}
		return g.matcher.Find(lowered[loc[2]:end])
	}
	return nil
}

// subgroupCrossRef drops categories that another cyclist's specific police
// sub-group accounts for. It is a no-op when this person's own sub-group is
// specific or no crashmate has a specific one.
func (g *guards) subgroupCrossRef(self dataset.Person, crashmates []dataset.Person, matches MatchSet) MatchSet {
	if contains(g.rules.SpecificSubgroups, self.CategoryP) {
		return matches
	}
	var attributed []string
	for _, other := range crashmates {
		if !contains(g.rules.SpecificSubgroups, other.CategoryP) {
			continue
		}
		if typ, ok := g.rules.SubgroupMap[other.CategoryP]; ok && matches.Has(typ) {
			attributed = append(attributed, typ)
		}
	}
	if len(attributed) == 0 {
		return matches
	}
	return matches.Without(attributed...)
}

// partnerExclusion removes categories the collision-partner sub-group says
// belong to the other party
func (g *guards) partnerExclusion(partner string, matches MatchSet) MatchSet {
	partner = strings.TrimSpace(partner)
	var excluded []string
	for _, cat := range matches {
		if contains(g.rules.PartnerExclusions[cat], partner) {
			excluded = append(excluded, cat)
		}
	}
	return matches.Without(excluded...)
}
