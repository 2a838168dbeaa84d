// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package types

import "fmt"

// Classification indicates the outcome of verifying an email address: either
// the address passed all verification stages, or the stage at which it first
// failed.
type Classification int

// The verification outcomes of an email address. The order of the failure
// classifications follows the order of the verification stages.
const (
	Valid  Classification = iota // address passed all stages.
	Syntax                       // address is malformed.
	Domain                       // address domain has no usable MX record.
	Server                       // mail server did not accept the recipient.
)

// AllClassifications lists all classifications in their canonical order.
var AllClassifications = []Classification{Valid, Syntax, Domain, Server}

// String returns the clear-text representation of a Classification value,
// which is also used to name result artifacts.
func (c Classification) String() string {
	switch c {
	case Valid:
		return "valid"
	case Syntax:
		return "syntax"
	case Domain:
		return "domain"
	case Server:
		return "server"
	}
	return fmt.Sprintf("Classification(%d)", c)
}

// IsValid returns true only if an address passed all verification stages.
func (c Classification) IsValid() bool {
	return c == Valid
}

// ParseClassification returns the Classification for its clear-text
// representation.
func ParseClassification(s string) (Classification, error) {
	for _, c := range AllClassifications {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown classification %q", s)
}
