/*
Package smtpprobe implements the mail server stage of the verification: it
checks whether a mail server accepts mail for a specific mailbox by starting
an SMTP transaction and then leaving before any mail gets sent.

	S: 220 mx.example.com ESMTP
	C: HELO mailsift.localhost
	S: 250 mx.example.com
	C: MAIL FROM:<test@example.com>
	S: 250 OK
	C: RCPT TO:<jane.doe@example.com>
	S: 250 OK              <-- the only reply considered to be a success
	C: QUIT

A [Prober] never sends DATA. Each probe uses its own connection that is
closed on every exit path. The whole session is bounded by a single timeout as
well as by the caller's context.

⚠ Servers that accept all mailboxes, greylist or reject probing hosts yield
false positives as well as false negatives. There's nothing RCPT TO can do
about that.

Probing many mailboxes at the same mail servers can get the probing host
blocked; [WithRateLimit] limits the rate of sessions across all probes.
*/
package smtpprobe
