/*
Package zerobounce is a minimal client for the [ZeroBounce] email validation
API, offering an alternative to verifying addresses locally.

The API has its own notion of address status ("valid", "invalid",
"catch-all", "unknown", ...) which deliberately is not mapped onto the local
classifications.

[ZeroBounce]: https://www.zerobounce.net/docs/email-validation-api-quickstart/
*/
package zerobounce
