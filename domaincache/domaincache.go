// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package domaincache

import (
	"context"
	"strings"
)

// Verdict is the cached outcome of checking a domain for a usable MX record.
type Verdict struct {
	OK bool   // domain has at least one usable MX record.
	MX string // most preferred mail exchange host, if OK.
}

// Cache caches domain verdicts. Implementations must be safe for concurrent
// use and must treat domain names case-insensitively.
type Cache interface {
	// Get returns the cached verdict for the specified domain, if any.
	Get(ctx context.Context, domain string) (Verdict, bool)
	// Set caches the verdict for the specified domain.
	Set(ctx context.Context, domain string, v Verdict)
}

// Key returns the normalized cache key for a domain name: lower case and
// without any trailing dot.
func Key(domain string) string {
	return strings.TrimSuffix(strings.ToLower(domain), ".")
}
