// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package batch

import (
	"time"

	"github.com/siemens/mailsift/types"

	"github.com/google/uuid"
)

// Stats describes a finished batch run.
type Stats struct {
	ID               uuid.UUID                    `json:"id"`
	Started          time.Time                    `json:"started"`
	Elapsed          time.Duration                `json:"elapsed"`
	Total            int                          `json:"total"`   // number of input addresses.
	Counts           map[types.Classification]int `json:"counts"`  // number of verdicts per classification.
	Dropped          int                          `json:"dropped"` // number of addresses without verdict.
	DroppedAddresses []string                     `json:"dropped_addresses,omitempty"`
}

// Throughput returns the number of input addresses per second, or 0 if no
// measurable time elapsed.
func (s Stats) Throughput() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Total) / s.Elapsed.Seconds()
}

// Verdicts returns the number of addresses that received a verdict.
func (s Stats) Verdicts() int {
	n := 0
	for _, count := range s.Counts {
		n += count
	}
	return n
}
