// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package mxlookup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// ErrNoSuchDomain signals that a DNS server authoritatively answered that the
// queried domain does not exist (NXDOMAIN).
var ErrNoSuchDomain = errors.New("domain does not exist")

// ErrNoRecords signals that the queried domain exists, but doesn't have any
// usable MX records.
var ErrNoRecords = errors.New("domain has no MX records")

// IsAbsent returns true if the specified error reports the authoritative
// absence of MX records, as opposed to a transient lookup failure.
func IsAbsent(err error) bool {
	return errors.Is(err, ErrNoSuchDomain) || errors.Is(err, ErrNoRecords)
}

// Lookup returns the MX records of a domain, sorted by preference.
type Lookup interface {
	LookupMX(ctx context.Context, domain string) ([]*net.MX, error)
}

// DNSLookup queries DNS servers for the MX records of domains, using a fresh
// exchange per query.
type DNSLookup struct {
	nameservers []string
	timeout     time.Duration // bounds a complete lookup attempt.
	retries     int           // additional attempts after transient failures.
	client      *dns.Client
}

var _ Lookup = (*DNSLookup)(nil)

// DNSLookupOption can be passed to New when creating new [DNSLookup] objects.
type DNSLookupOption func(*DNSLookup)

// DefaultTimeout bounds a single lookup attempt, unless overridden using
// [WithTimeout].
const DefaultTimeout = 5 * time.Second

// New returns a new [DNSLookup]. Unless told otherwise using
// [WithNameservers], it queries the nameservers configured in
// /etc/resolv.conf, falling back to public resolvers. Transient failures are
// not retried by default; see [WithRetries].
func New(options ...DNSLookupOption) *DNSLookup {
	l := &DNSLookup{
		timeout: DefaultTimeout,
		client:  &dns.Client{Net: "udp"},
	}
	for _, opt := range options {
		opt(l)
	}
	if len(l.nameservers) == 0 {
		l.nameservers = systemNameservers()
	}
	l.client.Timeout = l.timeout
	return l
}

// WithNameservers sets the DNS servers to query, in "host:port" format. The
// servers are tried in order until one gives a definitive answer.
func WithNameservers(servers ...string) DNSLookupOption {
	return func(l *DNSLookup) {
		l.nameservers = append([]string(nil), servers...)
	}
}

// WithTimeout sets the maximum duration of a single lookup attempt.
func WithTimeout(timeout time.Duration) DNSLookupOption {
	return func(l *DNSLookup) {
		if timeout > 0 {
			l.timeout = timeout
		}
	}
}

// WithRetries sets the number of additional lookup attempts after transient
// failures, such as timeouts or SERVFAILs. Authoritative answers are never
// retried.
func WithRetries(retries uint) DNSLookupOption {
	return func(l *DNSLookup) {
		l.retries = int(retries)
	}
}

// OverTCP makes the lookup query DNS servers over TCP instead of UDP.
func OverTCP() DNSLookupOption {
	return func(l *DNSLookup) {
		l.client.Net = "tcp"
	}
}

// Nameservers returns the DNS servers this lookup queries.
func (l *DNSLookup) Nameservers() []string {
	return append([]string(nil), l.nameservers...)
}

// LookupMX queries the MX records of the specified domain. It returns the
// mail exchange hosts sorted by ascending preference and without trailing
// dots, [ErrNoSuchDomain] or [ErrNoRecords] in case of authoritative
// absence, or any other error in case of transient failures.
func (l *DNSLookup) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	msg := dns.Msg{}
	msg.SetQuestion(dns.Fqdn(domain), dns.TypeMX)

	var lasterr error
	for attempt := 0; attempt <= l.retries; attempt++ {
		mxs, final, err := l.attempt(ctx, &msg, domain)
		if final {
			return mxs, err
		}
		lasterr = err
	}
	return nil, lasterr
}

// attempt runs a single lookup attempt, querying the nameservers in turn
// until the first definitive answer. It returns final as true if either
// there's a definitive answer or the context is done, so that no further
// attempts should be made.
func (l *DNSLookup) attempt(ctx context.Context, msg *dns.Msg, domain string) (mxs []*net.MX, final bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	for _, server := range l.nameservers {
		// don't query any further if the lifetime of this attempt has
		// already run out.
		select {
		case <-ctx.Done():
			if err == nil {
				err = fmt.Errorf("MX lookup for %q: %w", domain, ctx.Err())
			}
			return nil, ctx.Err() == context.Canceled, err
		default:
		}
		var r *dns.Msg
		var exerr error
		r, _, exerr = l.client.ExchangeContext(ctx, msg, server)
		if exerr != nil {
			err = fmt.Errorf("MX lookup for %q via %s failed: %w", domain, server, exerr)
			continue
		}
		switch r.Rcode {
		case dns.RcodeSuccess:
			mxs = mxRecords(r)
			if len(mxs) == 0 {
				return nil, true, fmt.Errorf("%w: %s", ErrNoRecords, domain)
			}
			return mxs, true, nil
		case dns.RcodeNameError:
			return nil, true, fmt.Errorf("%w: %s", ErrNoSuchDomain, domain)
		default:
			err = fmt.Errorf("MX lookup for %q via %s failed: %s",
				domain, server, dns.RcodeToString[r.Rcode])
		}
	}
	return nil, false, err
}

// mxRecords returns the usable MX records from a DNS answer, sorted by
// preference. A "null MX" (RFC 7505) isn't usable.
func mxRecords(r *dns.Msg) []*net.MX {
	mxs := []*net.MX{}
	for _, rr := range r.Answer {
		mx, ok := rr.(*dns.MX)
		if !ok {
			continue
		}
		host := strings.TrimSuffix(mx.Mx, ".")
		if host == "" {
			continue
		}
		mxs = append(mxs, &net.MX{Host: host, Pref: mx.Preference})
	}
	sort.SliceStable(mxs, func(a, b int) bool { return mxs[a].Pref < mxs[b].Pref })
	return mxs
}

// systemNameservers returns the DNS servers from /etc/resolv.conf, or some
// public DNS servers if there are none.
func systemNameservers() []string {
	config, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(config.Servers) == 0 {
		return []string{"8.8.8.8:53", "1.1.1.1:53"}
	}
	servers := make([]string, 0, len(config.Servers))
	for _, server := range config.Servers {
		servers = append(servers, net.JoinHostPort(server, config.Port))
	}
	return servers
}
