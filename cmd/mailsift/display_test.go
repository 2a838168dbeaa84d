// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"time"

	"github.com/siemens/mailsift/types"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
)

var _ = Describe("display", func() {

	BeforeEach(func() {
		goodgos := Goroutines()
		DeferCleanup(func() {
			Eventually(Goroutines).WithTimeout(2 * time.Second).WithPolling(100 * time.Millisecond).
				ShouldNot(HaveLeaked(goodgos))
		})
	})

	It("spins", func() {
		s := newSpinner(10 * time.Millisecond)
		defer s.Stop()
		first := s.Spinner()
		Expect(first).To(Equal("⠉ "))
		Eventually(s.Spinner).WithTimeout(time.Second).ShouldNot(Equal(first))
		s.Stop()
		s.Stop()
	})

	It("counts verdicts", func() {
		p := newProgress(4)
		p.Observe(types.Verdict{Address: "a@example.com", Class: types.Valid})
		p.Observe(types.Verdict{Address: "b", Class: types.Syntax})
		p.Observe(types.Verdict{Address: "c", Class: types.Syntax})
		p.Observe(types.Verdict{Address: "d", Class: types.Classification(42)})
		Expect(p.Count(types.Valid)).To(Equal(1))
		Expect(p.Count(types.Syntax)).To(Equal(2))
		Expect(p.Count(types.Classification(42))).To(BeZero())
		Expect(p.Done()).To(Equal(3))
	})

	It("renders progress", func() {
		p := newProgress(4)
		p.Observe(types.Verdict{Address: "a@example.com", Class: types.Valid})
		p.Observe(types.Verdict{Address: "b", Class: types.Syntax})
		var out bytes.Buffer
		r := newRenderer(&out, "emails.txt", p, time.Second)
		defer r.Stop()

		r.Render(nil)
		Expect(out.String()).To(ContainSubstring("verifying "))
		Expect(out.String()).To(ContainSubstring("2/4 (50%)"))
		Expect(out.String()).To(ContainSubstring("✔ valid 1"))
		Expect(out.String()).To(ContainSubstring("× syntax 1"))
		Expect(out.String()).To(ContainSubstring("× server 0"))

		out.Reset()
		dropped := 2
		r.Render(&dropped)
		Expect(out.String()).To(ContainSubstring("verified "))
		Expect(out.String()).To(ContainSubstring("! dropped 2"))
	})

})
