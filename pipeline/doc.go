/*
Package pipeline verifies a single email address in three stages, where the
first failing stage decides the classification of the address.

	address --> syntax --> domain --> server --> valid
	              |          |          |
	              v          v          v
	            syntax     domain     server

Each stage runs only after the previous one passed. The domain stage asks a
[DomainResolver], which typically caches its verdicts per domain; the server
stage asks a [MailboxProber] whether the domain's mail exchange host accepts
the address.
*/
package pipeline
