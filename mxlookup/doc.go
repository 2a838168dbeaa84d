/*
Package mxlookup implements MX record lookups using the [miekg/dns] module,
telling the authoritative absence of MX records apart from transient lookup
failures.

Usage

	lookup := mxlookup.New(
	    mxlookup.WithNameservers("127.0.0.53:53"),
	    mxlookup.WithTimeout(3*time.Second),
	)
	mxs, err := lookup.LookupMX(ctx, "example.org")
	switch {
	case mxlookup.IsAbsent(err):
	    // domain doesn't exist or has no MX records
	case err != nil:
	    // timeout, SERVFAIL, network trouble, ...
	}

Lookups aren't pooled: each lookup runs its own DNS exchange.

[miekg/dns]: https://github.com/miekg/dns
*/
package mxlookup
