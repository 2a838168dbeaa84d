/*
Package batch runs address verifications for whole lists of addresses
concurrently, using a limited pool of workers.

A [Runner] dispatches each address as an independent unit of work to its
worker pool and sorts the resulting verdicts into a [ResultSet] as they
arrive. The order of addresses within a classification bucket thus reflects
the order in which the verdicts were reached, not the input order.

Workers wait only for a limited time for the verdict of their address; after
that, the address gets dropped, logged, and counted in the run [Stats]. The
same happens when verifying an address panics. Dropped addresses are never
retried. So each input address ends up either in exactly one bucket or in the
list of dropped addresses.

[ReadAddresses] splits an address list into its lines.

# Acknowledgements

Under its hood, [Runner] leverages [gammazero/workerpool] as the limiting
goroutine pool.

[gammazero/workerpool]: https://github.com/gammazero/workerpool
*/
package batch
