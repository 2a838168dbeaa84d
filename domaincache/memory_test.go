// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package domaincache

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
)

var _ = Describe("in-memory domain verdict cache", func() {

	BeforeEach(func() {
		goodgos := Goroutines()
		DeferCleanup(func() {
			Eventually(Goroutines).WithTimeout(3 * time.Second).WithPolling(250 * time.Millisecond).
				ShouldNot(HaveLeaked(goodgos))
		})
	})

	It("normalizes keys", func() {
		Expect(Key("Example.COM.")).To(Equal("example.com"))
	})

	It("caches verdicts case-insensitively", func(ctx context.Context) {
		c := NewMemory()
		defer c.Close()
		_, ok := c.Get(ctx, "example.com")
		Expect(ok).To(BeFalse())

		c.Set(ctx, "Example.COM", Verdict{OK: true, MX: "mx.example.com"})
		Expect(cached(ctx, c, "example.com")).To(Equal(Verdict{OK: true, MX: "mx.example.com"}))
		c.Set(ctx, "nodomain.test", Verdict{})
		Expect(cached(ctx, c, "NODOMAIN.test").OK).To(BeFalse())
		Expect(c.Len()).To(Equal(2))
	})

	It("keeps verdicts without TTL", func(ctx context.Context) {
		c := NewMemory(WithShards(1))
		defer c.Close()
		c.Set(ctx, "example.com", Verdict{OK: true, MX: "mx"})
		Consistently(func() bool {
			_, ok := c.Get(ctx, "example.com")
			return ok
		}).WithTimeout(200 * time.Millisecond).Should(BeTrue())
	})

	It("expires verdicts", func(ctx context.Context) {
		c := NewMemory(WithTTL(100 * time.Millisecond))
		defer c.Close()
		c.Set(ctx, "example.com", Verdict{OK: true, MX: "mx"})
		Expect(cached(ctx, c, "example.com")).To(Equal(Verdict{OK: true, MX: "mx"}))
		Eventually(func() bool {
			_, ok := c.Get(ctx, "example.com")
			return ok
		}).Within(2 * time.Second).ProbeEvery(50 * time.Millisecond).Should(BeFalse())
	})

	It("evicts when at capacity", func(ctx context.Context) {
		c := NewMemory(WithShards(1), WithCapacity(2))
		defer c.Close()
		for idx := 0; idx < 5; idx++ {
			c.Set(ctx, fmt.Sprintf("domain-%d.test", idx), Verdict{})
		}
		Expect(c.Len()).To(Equal(2))
		_, ok := c.Get(ctx, "domain-4.test")
		Expect(ok).To(BeTrue())
		_, ok = c.Get(ctx, "domain-0.test")
		Expect(ok).To(BeFalse())
	})

	DescribeTable("never holds more verdicts than its capacity",
		func(ctx context.Context, capacity uint64, shards uint) {
			c := NewMemory(WithShards(shards), WithCapacity(capacity))
			defer c.Close()
			for idx := 0; idx < 200; idx++ {
				c.Set(ctx, fmt.Sprintf("domain-%d.test", idx), Verdict{})
			}
			Expect(c.Len()).To(BeNumerically("<=", capacity))
			Expect(len(c.shards)).To(BeNumerically("<=", capacity))
		},
		Entry("fewer than shards", uint64(4), uint(DefaultShards)),
		Entry("not a multiple of shards", uint64(10), uint(3)),
		Entry("single verdict", uint64(1), uint(DefaultShards)),
	)

	It("survives concurrent workers", func(ctx context.Context) {
		c := NewMemory()
		defer c.Close()
		var wg sync.WaitGroup
		for worker := 0; worker < 16; worker++ {
			wg.Add(1)
			go func(worker int) {
				defer GinkgoRecover()
				defer wg.Done()
				for idx := 0; idx < 100; idx++ {
					domain := fmt.Sprintf("domain-%d.test", (worker*7+idx)%50)
					c.Set(ctx, domain, Verdict{OK: true, MX: "mx." + domain})
					v, ok := c.Get(ctx, domain)
					Expect(ok).To(BeTrue())
					Expect(v.MX).To(Equal("mx." + domain))
				}
			}(worker)
		}
		wg.Wait()
		Expect(c.Len()).To(Equal(50))
	})

})
