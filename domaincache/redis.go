// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package domaincache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultRedisPrefix prefixes all Redis keys of a [Redis] cache, unless
// overridden using [WithPrefix].
const DefaultRedisPrefix = "mailsift:mx:"

// Redis is a domain verdict cache shared between multiple processes by storing
// verdicts in Redis. Redis failures are logged and then treated as cache
// misses, so that a Redis outage only costs additional DNS lookups.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration // 0 means no expiration.
	log    logrus.FieldLogger
}

var _ Cache = (*Redis)(nil)

// RedisOption can be passed to NewRedis when creating new [Redis] caches.
type RedisOption func(*Redis)

// NewRedis returns a new domain verdict cache backed by the specified Redis
// client.
func NewRedis(client redis.UniversalClient, options ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		prefix: DefaultRedisPrefix,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// WithPrefix sets the prefix of the Redis keys.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// WithExpiration sets the time after which Redis expires cached verdicts. A
// zero duration retains verdicts forever.
func WithExpiration(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithRedisLogger sets the logger for reporting Redis failures.
func WithRedisLogger(log logrus.FieldLogger) RedisOption {
	return func(r *Redis) {
		r.log = log
	}
}

// Get returns the cached verdict for the specified domain, if any.
func (r *Redis) Get(ctx context.Context, domain string) (Verdict, bool) {
	val, err := r.client.Get(ctx, r.prefix+Key(domain)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.WithField("domain", domain).Warnf("cannot fetch cached domain verdict: %s", err)
		}
		return Verdict{}, false
	}
	v, ok := decode(val)
	if !ok {
		r.log.WithField("domain", domain).Warnf("ignoring malformed cached domain verdict %q", val)
	}
	return v, ok
}

// Set caches the verdict for the specified domain.
func (r *Redis) Set(ctx context.Context, domain string, v Verdict) {
	if err := r.client.Set(ctx, r.prefix+Key(domain), encode(v), r.ttl).Err(); err != nil {
		r.log.WithField("domain", domain).Warnf("cannot cache domain verdict: %s", err)
	}
}

// encode a verdict into its textual Redis representation "1 mx.example.org"
// or "0".
func encode(v Verdict) string {
	if !v.OK {
		return "0"
	}
	return "1 " + v.MX
}

// decode the textual Redis representation of a verdict.
func decode(s string) (Verdict, bool) {
	switch {
	case s == "0":
		return Verdict{}, true
	case strings.HasPrefix(s, "1 "):
		return Verdict{OK: true, MX: s[2:]}, true
	}
	return Verdict{}, false
}
