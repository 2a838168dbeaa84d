// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package batch

import (
	"sync"

	"github.com/siemens/mailsift/types"
)

// ResultSet maps classifications to the addresses classified as such, in
// the order of their verdicts. Each classification bucket has its own lock, so
// concurrent workers only contend when adding addresses of the same
// classification.
type ResultSet struct {
	buckets map[types.Classification]*bucket // fixed after creation.
}

type bucket struct {
	mu    sync.Mutex
	addrs []string
}

// NewResultSet returns a new and properly initialized ResultSet.
func NewResultSet() *ResultSet {
	rs := &ResultSet{
		buckets: make(map[types.Classification]*bucket, len(types.AllClassifications)),
	}
	for _, class := range types.AllClassifications {
		rs.buckets[class] = &bucket{}
	}
	return rs
}

// Add the address of a verdict to the bucket of its classification. Verdicts
// with unknown classifications are ignored.
func (rs *ResultSet) Add(verdict types.Verdict) {
	b, ok := rs.buckets[verdict.Class]
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addrs = append(b.addrs, verdict.Address)
}

// Get returns a copy of the addresses with the specified classification.
func (rs *ResultSet) Get(class types.Classification) []string {
	b, ok := rs.buckets[class]
	if !ok {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.addrs...)
}

// Len returns the number of addresses with the specified classification.
func (rs *ResultSet) Len(class types.Classification) int {
	b, ok := rs.buckets[class]
	if !ok {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.addrs)
}

// Total returns the number of addresses in all buckets.
func (rs *ResultSet) Total() int {
	total := 0
	for _, class := range types.AllClassifications {
		total += rs.Len(class)
	}
	return total
}

// Counts returns the number of addresses per classification.
func (rs *ResultSet) Counts() map[types.Classification]int {
	counts := make(map[types.Classification]int, len(types.AllClassifications))
	for _, class := range types.AllClassifications {
		counts[class] = rs.Len(class)
	}
	return counts
}
