/*
Package resolver implements the domain verification stage: a [Resolver]
checks domains for usable MX records, with a verdict cache in front of the
actual DNS lookups.

Concurrent requests for the same yet unresolved domain are collapsed into a
single lookup, so a list with thousands of addresses at a handful of domains
causes only a handful of DNS lookups, independent of the number of workers.

Authoritative absence (the domain doesn't exist or has no MX records) and
transient failures (timeouts, server failures) both yield a negative verdict.
They are logged differently though, so that operators can tell a DNS outage
apart from genuinely bad domains. Lookups abandoned because the caller's
context is done are never cached.
*/
package resolver
