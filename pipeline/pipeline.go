// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"errors"

	"github.com/siemens/mailsift/syntax"
	"github.com/siemens/mailsift/types"

	"github.com/sirupsen/logrus"
)

// Errors attached to verdicts of addresses failing the syntax or domain stage.
var (
	ErrMalformed      = errors.New("malformed email address")
	ErrNoMailExchange = errors.New("domain without usable MX record")
	ErrRejected       = errors.New("mail server rejected recipient")
)

// DomainResolver tells whether a domain has a usable mail exchange host, and
// if so, which one to talk to.
type DomainResolver interface {
	Resolve(ctx context.Context, domain string) (mxhost string, ok bool)
}

// MailboxProber tells whether a mail exchange host accepts mail for an
// address.
type MailboxProber interface {
	Probe(ctx context.Context, address string, mxhost string) bool
}

// detailedProber is optionally implemented by MailboxProbers that are able
// to tell why they rejected an address.
type detailedProber interface {
	ProbeDetail(ctx context.Context, address string, mxhost string) (code int, err error)
}

// Pipeline verifies single email addresses by running them through the
// syntax, domain and server stages, stopping at the first failing stage.
// Pipelines keep no state of their own and are safe for concurrent use as long
// as their resolver and prober are.
type Pipeline struct {
	resolver DomainResolver
	prober   MailboxProber
	log      logrus.FieldLogger
}

// Option can be passed to New when creating new [Pipeline] objects.
type Option func(*Pipeline)

// New returns a new [Pipeline] using the specified domain resolver and
// mailbox prober.
func New(resolver DomainResolver, prober MailboxProber, options ...Option) *Pipeline {
	p := &Pipeline{
		resolver: resolver,
		prober:   prober,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// WithLogger sets the logger for reporting failed stages.
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Pipeline) {
		p.log = log
	}
}

// Verify returns the verdict for the specified address. Verify never fails:
// all failures, including network failures, turn into the classification of
// the stage where they happened.
func (p *Pipeline) Verify(ctx context.Context, address string) types.Verdict {
	log := p.log.WithField("address", address)
	if !syntax.Check(address) {
		log.Debug("syntax check failed")
		return types.Verdict{Address: address, Class: types.Syntax, Err: ErrMalformed}
	}
	domain := types.DomainOf(address)
	mxhost, ok := p.resolver.Resolve(ctx, domain)
	if !ok {
		log.WithField("domain", domain).Debug("domain check failed")
		return types.Verdict{Address: address, Class: types.Domain, Err: ErrNoMailExchange}
	}
	if err := p.probe(ctx, address, mxhost); err != nil {
		log.WithField("mx", mxhost).Debugf("server check failed: %s", err)
		return types.Verdict{Address: address, Class: types.Server, Err: err}
	}
	return types.Verdict{Address: address, Class: types.Valid}
}

func (p *Pipeline) probe(ctx context.Context, address string, mxhost string) error {
	if detailed, ok := p.prober.(detailedProber); ok {
		if _, err := detailed.ProbeDetail(ctx, address, mxhost); err != nil {
			return errors.Join(ErrRejected, err)
		}
		return nil
	}
	if !p.prober.Probe(ctx, address, mxhost) {
		return ErrRejected
	}
	return nil
}
