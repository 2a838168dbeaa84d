// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/siemens/mailsift/types"
)

// progress counts the verdicts of a batch run as they come in. It is safe for
// concurrent use.
type progress struct {
	total  int
	counts map[types.Classification]*atomic.Int64 // fixed after creation.
}

func newProgress(total int) *progress {
	p := &progress{
		total:  total,
		counts: make(map[types.Classification]*atomic.Int64, len(types.AllClassifications)),
	}
	for _, class := range types.AllClassifications {
		p.counts[class] = &atomic.Int64{}
	}
	return p
}

// Observe counts a verdict; it is suitable as a batch runner observer.
func (p *progress) Observe(verdict types.Verdict) {
	if count, ok := p.counts[verdict.Class]; ok {
		count.Add(1)
	}
}

// Count returns the number of verdicts with the specified classification.
func (p *progress) Count(class types.Classification) int {
	if count, ok := p.counts[class]; ok {
		return int(count.Load())
	}
	return 0
}

// Done returns the number of verdicts so far.
func (p *progress) Done() int {
	done := 0
	for _, class := range types.AllClassifications {
		done += p.Count(class)
	}
	return done
}

// renderer renders the live progress of verifying an address list.
type renderer struct {
	Indentation int
	listName    string
	w           io.Writer
	spinner     *spinner
	progress    *progress
}

// newRenderer returns a renderer rendering to the specified io.Writer the
// progress of verifying the named list.
func newRenderer(w io.Writer, listName string, p *progress, interval time.Duration) *renderer {
	return &renderer{
		Indentation: 3,
		listName:    listName,
		w:           w,
		spinner:     newSpinner(interval),
		progress:    p,
	}
}

// Stop the renderer's background ticker.
func (r *renderer) Stop() {
	r.spinner.Stop()
}

// Render the current progress. Passing the number of dropped addresses
// renders the final state.
func (r *renderer) Render(dropped *int) {
	done := r.progress.Done()
	total := r.progress.total
	percent := 100
	if total > 0 {
		percent = done * 100 / total
	}
	if dropped == nil {
		fmt.Fprint(r.w, verifyingStyle.Styled(r.spinner.Spinner()))
		fmt.Fprintf(r.w, "verifying %s: %d/%d (%d%%)\n",
			listNameStyle.Styled(r.listName), done, total, percent)
	} else {
		fmt.Fprintf(r.w, "verified %s: %d/%d\n",
			listNameStyle.Styled(r.listName), done, total)
	}
	fmt.Fprintf(r.w, "%-*s", r.Indentation, "")
	for idx, class := range types.AllClassifications {
		if idx > 0 {
			fmt.Fprint(r.w, "  ")
		}
		fmt.Fprint(r.w, classStyle(class).Styled(
			fmt.Sprintf("%s %s %d", classMark(class), class, r.progress.Count(class))))
	}
	if dropped != nil && *dropped > 0 {
		fmt.Fprint(r.w, droppedStyle.Styled(fmt.Sprintf("  ! dropped %d", *dropped)))
	}
	fmt.Fprintln(r.w)
}
