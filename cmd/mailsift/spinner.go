// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

// Yet another (braille) spinner.

package main

import (
	"sync"
	"time"
)

// spinnerPhases are the (braille) characters the spinner cycles through.
const spinnerPhases = "⠉⠘⠰⠤⠆⠃"

// spinner is yet another blindingly simple spinner; just enough to get the job
// done, no bells, no frills.
type spinner struct {
	phases   []string
	done     chan struct{}
	stopOnce sync.Once
	mu       sync.Mutex
	phase    int
}

// newSpinner returns a new spinner already spinning in steps every specified
// interval; call Stop to release its background resources.
func newSpinner(interval time.Duration) *spinner {
	s := &spinner{
		done: make(chan struct{}),
	}
	for _, r := range spinnerPhases {
		s.phases = append(s.phases, string(r)+" ")
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.step()
			case <-s.done:
				return
			}
		}
	}()
	return s
}

// Spinner returns the spinner string for the current phase.
func (s *spinner) Spinner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phases[s.phase]
}

func (s *spinner) step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = (s.phase + 1) % len(s.phases)
}

// Stop the spinner and release the background resources. Stop can be called
// multiple times.
func (s *spinner) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}
