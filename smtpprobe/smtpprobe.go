// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package smtpprobe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Defaults for probing mail servers.
const (
	DefaultTimeout = 5 * time.Second
	DefaultPort    = 25
	DefaultHelo    = "mailsift.localhost"
	DefaultSender  = "test@example.com"
)

// retryDelay is the pause between consecutive attempts for the same mailbox.
const retryDelay = 250 * time.Millisecond

// Dialer opens network connections to mail servers; [net.Dialer] satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Prober asks mail servers whether they accept mail for specific mailboxes,
// without ever sending any mail. Probers are safe for concurrent use.
type Prober struct {
	timeout time.Duration // bounds a single SMTP session as a whole.
	port    string        // mail server TCP port.
	helo    string        // name to greet the mail server with.
	sender  string        // envelope sender address.
	retries uint          // number of additional attempts on transient failures.
	limiter *rate.Limiter // optional limit on the rate of sessions across all probes.
	dialer  Dialer
	log     logrus.FieldLogger
}

// Option can be passed to New when creating new [Prober] objects.
type Option func(*Prober)

// New returns a new [Prober], configured using the specified options:
//   - [WithTimeout]
//   - [WithPort]
//   - [WithHelo]
//   - [WithSender]
//   - [WithRetries]
//   - [WithRateLimit]
//   - [WithDialer]
//   - [WithLogger]
func New(options ...Option) *Prober {
	p := &Prober{
		timeout: DefaultTimeout,
		port:    strconv.Itoa(DefaultPort),
		helo:    DefaultHelo,
		sender:  DefaultSender,
		dialer:  &net.Dialer{},
		log:     logrus.StandardLogger(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// WithTimeout sets the maximum duration of a single SMTP session, from
// connecting to the mail server to receiving the RCPT reply.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Prober) {
		p.timeout = timeout
	}
}

// WithPort sets the TCP port of mail servers, defaulting to 25.
func WithPort(port uint16) Option {
	return func(p *Prober) {
		p.port = strconv.FormatUint(uint64(port), 10)
	}
}

// WithHelo sets the name the prober announces itself with in its HELO.
func WithHelo(name string) Option {
	return func(p *Prober) {
		p.helo = name
	}
}

// WithSender sets the envelope sender address used in MAIL FROM.
func WithSender(sender string) Option {
	return func(p *Prober) {
		p.sender = sender
	}
}

// WithRetries sets the number of additional attempts after transient
// failures, that is, 4xx replies and network errors. Defaults to 0.
func WithRetries(retries uint) Option {
	return func(p *Prober) {
		p.retries = retries
	}
}

// WithRateLimit limits the rate of SMTP sessions across all probes of this
// prober.
func WithRateLimit(limiter *rate.Limiter) Option {
	return func(p *Prober) {
		p.limiter = limiter
	}
}

// WithDialer sets the dialer for connecting to mail servers.
func WithDialer(dialer Dialer) Option {
	return func(p *Prober) {
		p.dialer = dialer
	}
}

// WithLogger sets the logger for reporting probe outcomes.
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Prober) {
		p.log = log
	}
}

// Probe returns true if the specified mail exchange host accepts mail for
// address, and false otherwise. It never returns errors; any failure to
// connect or talk to the mail server as well as any RCPT reply other than 250
// yields false.
func (p *Prober) Probe(ctx context.Context, address string, mxhost string) bool {
	_, err := p.ProbeDetail(ctx, address, mxhost)
	return err == nil
}

// ProbeDetail works like [Prober.Probe], but returns the last reply code
// received together with the reason for a failed probe. The code is 0 if the
// session failed before receiving any reply for the failing step.
func (p *Prober) ProbeDetail(ctx context.Context, address string, mxhost string) (code int, err error) {
	log := p.log.WithFields(logrus.Fields{"address": address, "mx": mxhost})
	for attempt := uint(0); ; attempt++ {
		code, err = p.session(ctx, address, mxhost)
		if err == nil {
			log.WithField("code", code).Info("mailbox accepted")
			return code, nil
		}
		if attempt >= p.retries || !transient(code) || ctx.Err() != nil {
			break
		}
		log.WithField("code", code).Debugf("transient failure, retrying: %s", err)
		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return code, err
		}
	}
	if code == 0 {
		log.Errorf("error while validating mail server: %s", err)
	} else {
		log.WithField("code", code).Warnf("mailbox rejected: %s", err)
	}
	return code, err
}

// transient returns true for temporary SMTP failures as well as network
// errors without any reply.
func transient(code int) bool {
	return code == 0 || (code >= 400 && code < 500)
}

// session runs a single SMTP session with the specified mail server, checking
// whether the server accepts mail for the specified address. It doesn't
// return until it has sent QUIT and closed the connection.
func (p *Prober) session(ctx context.Context, address string, mxhost string) (int, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return 0, err
		}
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	conn, err := p.dialer.DialContext(ctx, "tcp", net.JoinHostPort(mxhost, p.port))
	if err != nil {
		return 0, fmt.Errorf("cannot connect to mail server %s, reason: %w", mxhost, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	// While the session is running, we need to monitor the context in case it
	// becomes done, as the connection deadline only covers the timeout, but
	// not cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	text := textproto.NewConn(conn)
	defer text.Close()
	defer func() { _, _ = command(text, 221, "QUIT") }()

	if code, _, err := text.ReadResponse(220); err != nil {
		return code, fmt.Errorf("mail server greeting: %w", wrapCtx(ctx, err))
	}
	if code, err := command(text, 2, "HELO %s", p.helo); err != nil {
		return code, fmt.Errorf("HELO: %w", wrapCtx(ctx, err))
	}
	if code, err := command(text, 2, "MAIL FROM:<%s>", p.sender); err != nil {
		return code, fmt.Errorf("MAIL FROM: %w", wrapCtx(ctx, err))
	}
	// Only an exact 250 counts as acceptance; 251 forwarding and 252 "cannot
	// verify" replies don't.
	code, err := command(text, 250, "RCPT TO:<%s>", address)
	if err != nil {
		return code, fmt.Errorf("RCPT TO: %w", wrapCtx(ctx, err))
	}
	return code, nil
}

// command sends a single SMTP command and reads its reply, which must match
// the expected code (prefix).
func command(text *textproto.Conn, expect int, format string, args ...any) (int, error) {
	id, err := text.Cmd(format, args...)
	if err != nil {
		return 0, err
	}
	text.StartResponse(id)
	defer text.EndResponse(id)
	code, _, err := text.ReadResponse(expect)
	return code, err
}

// wrapCtx attributes network errors caused by a done context to that
// context.
func wrapCtx(ctx context.Context, err error) error {
	var protoerr *textproto.Error
	if errors.As(err, &protoerr) || ctx.Err() == nil {
		return err
	}
	return fmt.Errorf("%w (%s)", ctx.Err(), err.Error())
}
