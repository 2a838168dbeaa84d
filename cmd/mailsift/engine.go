// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/siemens/mailsift/config"
	"github.com/siemens/mailsift/domaincache"
	"github.com/siemens/mailsift/mxlookup"
	"github.com/siemens/mailsift/pipeline"
	"github.com/siemens/mailsift/resolver"
	"github.com/siemens/mailsift/smtpprobe"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// engine is the verification machinery put together according to the
// configuration.
type engine struct {
	pipeline *pipeline.Pipeline
	resolver *resolver.Resolver
	closers  []func() error
}

// newEngine returns a new verification engine as configured.
func newEngine(cfg *config.Config, log logrus.FieldLogger) (*engine, error) {
	e := &engine{}

	lookupopts := []mxlookup.DNSLookupOption{
		mxlookup.WithTimeout(cfg.DNS.Timeout),
		mxlookup.WithRetries(cfg.DNS.Retries),
	}
	if len(cfg.DNS.Nameservers) > 0 {
		lookupopts = append(lookupopts, mxlookup.WithNameservers(cfg.DNS.Nameservers...))
	}
	if cfg.DNS.TCP {
		lookupopts = append(lookupopts, mxlookup.OverTCP())
	}
	lookup := mxlookup.New(lookupopts...)
	log.Debugf("querying nameservers %v", lookup.Nameservers())

	var cache domaincache.Cache
	if cfg.Cache.Redis != "" {
		opts, err := redis.ParseURL(cfg.Cache.Redis)
		if err != nil {
			return nil, fmt.Errorf("invalid Redis URL, reason: %w", err)
		}
		client := redis.NewClient(opts)
		e.closers = append(e.closers, client.Close)
		cache = domaincache.NewRedis(client,
			domaincache.WithPrefix(cfg.Cache.Prefix),
			domaincache.WithExpiration(cfg.Cache.TTL),
			domaincache.WithRedisLogger(log))
	} else {
		mem := domaincache.NewMemory(
			domaincache.WithTTL(cfg.Cache.TTL),
			domaincache.WithCapacity(cfg.Cache.Capacity),
			domaincache.WithShards(cfg.Cache.Shards))
		e.closers = append(e.closers, func() error { mem.Close(); return nil })
		cache = mem
	}
	e.resolver = resolver.New(lookup,
		resolver.WithCache(cache),
		resolver.WithLogger(log))

	probeopts := []smtpprobe.Option{
		smtpprobe.WithTimeout(cfg.SMTP.Timeout),
		smtpprobe.WithPort(cfg.SMTP.Port),
		smtpprobe.WithHelo(cfg.SMTP.Helo),
		smtpprobe.WithSender(cfg.SMTP.Sender),
		smtpprobe.WithRetries(cfg.SMTP.Retries),
		smtpprobe.WithLogger(log),
	}
	if cfg.SMTP.RateLimit > 0 {
		probeopts = append(probeopts, smtpprobe.WithRateLimit(
			rate.NewLimiter(rate.Limit(cfg.SMTP.RateLimit), cfg.SMTP.Burst)))
	}
	prober := smtpprobe.New(probeopts...)

	e.pipeline = pipeline.New(e.resolver, prober, pipeline.WithLogger(log))
	return e, nil
}

// Close releases the engine's cache resources.
func (e *engine) Close() error {
	var err error
	for _, closer := range e.closers {
		if cerr := closer(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
