// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package sink

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/siemens/mailsift/batch"
	"github.com/siemens/mailsift/types"
)

// Deliver puts the artifacts for the non-empty classifications of the
// specified result set into a store, naming them with the specified prefix.
// It returns the names of the artifacts delivered as well as the
// classifications without any artifacts.
func Deliver(ctx context.Context, store Store, prefix string, rs *batch.ResultSet) (delivered []string, empty []types.Classification, err error) {
	artifacts, empty := Artifacts(rs)
	for _, artifact := range artifacts {
		name := path.Join(prefix, artifact.Name)
		if err := store.Put(ctx, name, artifact.Data); err != nil {
			return delivered, empty, err
		}
		delivered = append(delivered, name)
	}
	return delivered, empty, nil
}

// Report returns the human-readable summary of a batch run.
func Report(stats batch.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Verification of batch %s finished in %.2f seconds.\n",
		stats.ID, stats.Elapsed.Seconds())
	fmt.Fprintf(&b, "Total addresses: %d\n", stats.Total)
	fmt.Fprintf(&b, "Throughput: %.2f addresses/second\n", stats.Throughput())
	for _, class := range types.AllClassifications {
		if count := stats.Counts[class]; count > 0 {
			fmt.Fprintf(&b, "%s: %d\n", class, count)
		} else {
			fmt.Fprintf(&b, "%s: no results\n", class)
		}
	}
	fmt.Fprintf(&b, "dropped: %d\n", stats.Dropped)
	return b.String()
}
