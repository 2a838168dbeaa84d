// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package syntax

import "regexp"

// pattern is a deliberately permissive pre-filter: a local part, an "@", a
// first domain label, a literal ".", and then anything made of labels and
// further dots (so that multi-label TLDs such as "co.uk" pass).
var pattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

// Check returns true if the specified email address is syntactically
// acceptable. Check never fails; malformed input simply yields false.
func Check(address string) bool {
	return pattern.MatchString(address)
}
