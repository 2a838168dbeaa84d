/*
Package domaincache caches domain verdicts, that is, whether a domain has a
usable MX record and which mail exchange host is the most preferred one. This
avoids redundant DNS round-trips when many addresses of a list share the same
domain.

[Memory] keeps verdicts in-process, using [jellydator/ttlcache] shards with
independent locks. By default verdicts are kept for the lifetime of the cache;
optionally, they expire after a TTL and/or get evicted when reaching a
capacity limit.

[Redis] keeps verdicts in Redis, so that several mailsift processes share
their domain verdicts.

Domain names are case-insensitive, so all cache keys are lower case.

[jellydator/ttlcache]: https://github.com/jellydator/ttlcache
*/
package domaincache
