/*
Package types defines mailsift's information model. Which is rather simple and
mainly revolves around the [Classification] of an email address, as well as
the [Verdict] carrying an address together with its classification.

A Classification names the first verification stage an address failed at, so
the classifications are mutually exclusive: syntax, domain, and server; or the
address is valid if it passed all stages.

Verdicts are passed around by value, so they can be safely handed from the
verification workers to result collectors and observers without any locking.
*/
package types
