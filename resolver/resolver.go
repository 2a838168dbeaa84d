// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package resolver

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/siemens/mailsift/domaincache"
	"github.com/siemens/mailsift/mxlookup"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Resolver tells whether domains have usable MX records, caching its
// verdicts so that each domain is looked up only once, even when many
// concurrent workers ask for the same domain at the same time.
type Resolver struct {
	lookup  mxlookup.Lookup
	cache   domaincache.Cache
	flights singleflight.Group
	lookups atomic.Int64
	log     logrus.FieldLogger
}

// Option can be passed to New when creating new [Resolver] objects.
type Option func(*Resolver)

// New returns a new [Resolver] that looks up MX records using the specified
// lookup. Unless specified otherwise using [WithCache], the resolver caches
// its verdicts in-memory for its lifetime.
func New(lookup mxlookup.Lookup, options ...Option) *Resolver {
	r := &Resolver{
		lookup: lookup,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range options {
		opt(r)
	}
	if r.cache == nil {
		r.cache = domaincache.NewMemory()
	}
	return r
}

// WithCache sets the domain verdict cache to use.
func WithCache(cache domaincache.Cache) Option {
	return func(r *Resolver) {
		r.cache = cache
	}
}

// WithLogger sets the logger for reporting lookup outcomes.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Resolver) {
		r.log = log
	}
}

// Resolve returns true if the specified domain has a usable MX record,
// together with the most preferred mail exchange host. Otherwise, it returns
// false, regardless of whether the domain authoritatively lacks MX records or
// the lookup failed; the distinction is only logged.
func (r *Resolver) Resolve(ctx context.Context, domain string) (mxhost string, ok bool) {
	key := domaincache.Key(domain)
	if key == "" {
		return "", false
	}
	if v, ok := r.cache.Get(ctx, key); ok {
		return v.MX, v.OK
	}
	for {
		res, _, _ := r.flights.Do(key, func() (interface{}, error) {
			// The previous flight for this domain might have landed in between
			// our cache miss and taking off.
			if v, ok := r.cache.Get(ctx, key); ok {
				return flight{verdict: v, final: true}, nil
			}
			v, final := r.resolve(ctx, key)
			if final {
				r.cache.Set(ctx, key, v)
			}
			return flight{verdict: v, final: final}, nil
		})
		f := res.(flight)
		// A flight abandoned by some other caller that gave up doesn't tell
		// anything about the domain, so take off again as long as we're
		// still interested.
		if f.final || ctx.Err() != nil {
			return f.verdict.MX, f.verdict.OK
		}
	}
}

// flight is the outcome of a shared lookup; final is false when the lookup
// was abandoned because its caller gave up.
type flight struct {
	verdict domaincache.Verdict
	final   bool
}

// Lookups returns the number of MX lookups carried out so far, that is,
// excluding the requests served from the cache.
func (r *Resolver) Lookups() int64 {
	return r.lookups.Load()
}

// resolve looks up the MX records of the specified domain and logs the
// outcome. It returns final as false if the lookup failed only because the
// caller gave up, so the verdict must not be cached.
func (r *Resolver) resolve(ctx context.Context, domain string) (v domaincache.Verdict, final bool) {
	r.lookups.Add(1)
	log := r.log.WithField("domain", domain)
	mxs, err := r.lookup.LookupMX(ctx, domain)
	if err == nil && len(mxs) == 0 {
		err = mxlookup.ErrNoRecords
	}
	switch {
	case err == nil:
		hosts := make([]string, 0, len(mxs))
		for _, mx := range mxs {
			hosts = append(hosts, mx.Host)
		}
		log.Infof("domain has MX records: %s", strings.Join(hosts, ", "))
		return domaincache.Verdict{OK: true, MX: mxs[0].Host}, true
	case errors.Is(err, mxlookup.ErrNoRecords):
		log.Warn("domain has no MX records")
	case errors.Is(err, mxlookup.ErrNoSuchDomain):
		log.Warn("domain does not exist")
	case ctx.Err() != nil:
		log.Errorf("domain lookup abandoned: %s", err)
		return domaincache.Verdict{}, false
	default:
		log.Errorf("error while checking domain: %s", err)
	}
	return domaincache.Verdict{}, true
}
