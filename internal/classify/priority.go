// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package classify

// Resolve picks the highest-priority category present in matches. It
// returns "" only for an empty set. Categories missing from the priority
// list rank after every listed one, in set order.
func (r Rules) Resolve(matches MatchSet) string {
	if len(matches) == 0 {
		return ""
	}
	for _, p := range r.Priority {
		if matches.Has(p) {
			return p
		}
	}
	return matches[0]
}
