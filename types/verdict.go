// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package types

import "strings"

// Verdict is the outcome of running a single email address through the
// verification stages.
type Verdict struct {
	Address string         `json:"address"` // the email address as submitted.
	Class   Classification `json:"class"`   // first failed stage, or Valid.
	Err     error          `json:"-"`       // optional details for failures.
}

// String returns the address together with its classification.
func (v Verdict) String() string {
	return v.Address + " (" + v.Class.String() + ")"
}

// DomainOf returns the domain part of an email address, that is, everything
// after the last "@". If the address doesn't contain an "@" at all, DomainOf
// returns "".
func DomainOf(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return ""
	}
	return address[at+1:]
}
