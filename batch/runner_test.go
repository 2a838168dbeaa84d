// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/siemens/mailsift/mxlookup"
	"github.com/siemens/mailsift/pipeline"
	"github.com/siemens/mailsift/resolver"
	"github.com/siemens/mailsift/types"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
)

// countingLookup knows a fixed set of domains and counts its lookups.
type countingLookup struct {
	lookups atomic.Int32
}

func (l *countingLookup) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	l.lookups.Add(1)
	select {
	case <-time.After(20 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	switch domain {
	case "example.com", "example.org":
		return []*net.MX{{Host: "mx." + domain, Pref: 10}}, nil
	}
	return nil, fmt.Errorf("%w: %s", mxlookup.ErrNoSuchDomain, domain)
}

// acceptingProber accepts all mailboxes except for those starting with
// "ghost".
type acceptingProber struct{}

func (acceptingProber) Probe(_ context.Context, address string, _ string) bool {
	return !strings.HasPrefix(address, "ghost")
}

// verifierFunc adapts a plain function to the Verifier interface.
type verifierFunc func(ctx context.Context, address string) types.Verdict

func (f verifierFunc) Verify(ctx context.Context, address string) types.Verdict {
	return f(ctx, address)
}

// brokenContext is a context that fails when asked for its done channel.
type brokenContext struct {
	context.Context
}

func (brokenContext) Done() <-chan struct{} {
	panic("broken context")
}

func classes(rs *ResultSet) map[string]types.Classification {
	m := map[string]types.Classification{}
	for _, class := range types.AllClassifications {
		for _, addr := range rs.Get(class) {
			m[addr] = class
		}
	}
	return m
}

var _ = Describe("batch runner", func() {

	var log *logrus.Logger
	var hook *test.Hook

	BeforeEach(func() {
		goodgos := Goroutines()
		DeferCleanup(func() {
			Eventually(Goroutines).WithTimeout(2 * time.Second).WithPolling(100 * time.Millisecond).
				ShouldNot(HaveLeaked(goodgos))
		})
		log, hook = test.NewNullLogger()
	})

	It("rejects invalid worker counts", func() {
		Expect(func() { WithWorkers(0) }).To(Panic())
		Expect(func() { WithWorkers(MaxWorkers + 1) }).To(Panic())
		Expect(func() { WithWorkers(MaxWorkers) }).NotTo(Panic())
	})

	It("looks up each domain only once", func(ctx context.Context) {
		lookup := &countingLookup{}
		res := resolver.New(lookup, resolver.WithLogger(log))
		verifier := pipeline.New(res, acceptingProber{}, pipeline.WithLogger(log))

		domains := []string{"example.com", "example.org", "nowhere.test"}
		addrs := make([]string, 100)
		for i := range addrs {
			addrs[i] = fmt.Sprintf("user%d@%s", i, domains[i%len(domains)])
		}

		rs, stats := New(verifier, WithWorkers(10), WithLogger(log)).Run(ctx, addrs)
		Expect(rs.Total()).To(Equal(100))
		Expect(lookup.lookups.Load()).To(Equal(int32(3)))
		Expect(res.Lookups()).To(Equal(int64(3)))
		Expect(rs.Len(types.Valid)).To(Equal(67))
		Expect(rs.Len(types.Domain)).To(Equal(33))
		Expect(stats.Total).To(Equal(100))
		Expect(stats.Dropped).To(BeZero())
		Expect(stats.Elapsed).To(BeNumerically(">", 0))
		Expect(stats.Throughput()).To(BeNumerically(">", 0))
	})

	It("classifies each address exactly once", func(ctx context.Context) {
		res := resolver.New(&countingLookup{}, resolver.WithLogger(log))
		verifier := pipeline.New(res, acceptingProber{}, pipeline.WithLogger(log))
		addrs := []string{
			"user@example.com",
			"ghost@example.org",
			"user@nowhere.test",
			"not-an-email",
			"",
			"user@example.com", // duplicates count twice
		}
		var observed atomic.Int32
		rs, stats := New(verifier,
			WithWorkers(3),
			WithObserver(func(types.Verdict) { observed.Add(1) }),
			WithLogger(log)).Run(ctx, addrs)
		Expect(rs.Get(types.Valid)).To(ConsistOf("user@example.com", "user@example.com"))
		Expect(rs.Get(types.Server)).To(ConsistOf("ghost@example.org"))
		Expect(rs.Get(types.Domain)).To(ConsistOf("user@nowhere.test"))
		Expect(rs.Get(types.Syntax)).To(ConsistOf("not-an-email", ""))
		Expect(stats.Verdicts() + stats.Dropped).To(Equal(len(addrs)))
		Expect(observed.Load()).To(Equal(int32(len(addrs))))
		Expect(stats.ID.String()).NotTo(BeEmpty())
		Expect(hook.AllEntries()).To(ContainElement(
			HaveField("Data", HaveKeyWithValue("batch", stats.ID.String()))))
	})

	It("returns the same classifications on reruns", func(ctx context.Context) {
		res := resolver.New(&countingLookup{}, resolver.WithLogger(log))
		verifier := pipeline.New(res, acceptingProber{}, pipeline.WithLogger(log))
		addrs := []string{"a@example.com", "ghost@example.com", "b@nowhere.test", "c", "d@example.org"}
		runner := New(verifier, WithWorkers(2), WithLogger(log))
		rs1, stats1 := runner.Run(ctx, addrs)
		rs2, stats2 := runner.Run(ctx, addrs)
		Expect(classes(rs1)).To(Equal(classes(rs2)))
		Expect(stats1.ID).NotTo(Equal(stats2.ID))
	})

	It("drops addresses taking too long", func(ctx context.Context) {
		verifier := verifierFunc(func(ctx context.Context, address string) types.Verdict {
			if strings.HasPrefix(address, "slow") {
				<-ctx.Done()
			}
			return types.Verdict{Address: address, Class: types.Valid}
		})
		start := time.Now()
		rs, stats := New(verifier,
			WithWorkers(2),
			WithUnitTimeout(100*time.Millisecond),
			WithLogger(log)).Run(ctx, []string{"a@example.com", "slow@example.com", "b@example.com"})
		Expect(time.Since(start)).To(BeNumerically("<", 2*time.Second))
		Expect(rs.Get(types.Valid)).To(ConsistOf("a@example.com", "b@example.com"))
		Expect(stats.Dropped).To(Equal(1))
		Expect(stats.DroppedAddresses).To(ConsistOf("slow@example.com"))
		Expect(hook.AllEntries()).To(ContainElement(And(
			HaveField("Level", logrus.ErrorLevel),
			HaveField("Data", HaveKeyWithValue("address", "slow@example.com")))))
	})

	It("drops addresses whose verification panics", func(ctx context.Context) {
		verifier := verifierFunc(func(ctx context.Context, address string) types.Verdict {
			if address == "boom@example.com" {
				panic("boom")
			}
			return types.Verdict{Address: address, Class: types.Server}
		})
		rs, stats := New(verifier, WithWorkers(1), WithLogger(log)).
			Run(ctx, []string{"a@example.com", "boom@example.com", "b@example.com"})
		Expect(rs.Get(types.Server)).To(ConsistOf("a@example.com", "b@example.com"))
		Expect(stats.DroppedAddresses).To(ConsistOf("boom@example.com"))
		Expect(hook.AllEntries()).To(ContainElement(
			HaveField("Message", ContainSubstring("panicked"))))
	})

	It("survives panicking observers", func(ctx context.Context) {
		verifier := verifierFunc(func(ctx context.Context, address string) types.Verdict {
			return types.Verdict{Address: address, Class: types.Valid}
		})
		addrs := []string{"a@example.com", "b@example.com"}
		rs, stats := New(verifier,
			WithWorkers(1),
			WithObserver(func(types.Verdict) { panic("observer boom") }),
			WithLogger(log)).Run(ctx, addrs)
		Expect(rs.Get(types.Valid)).To(ConsistOf(addrs))
		Expect(rs.Total() + stats.Dropped).To(Equal(len(addrs)))
		Expect(hook.AllEntries()).To(ContainElement(And(
			HaveField("Level", logrus.ErrorLevel),
			HaveField("Message", ContainSubstring("observer panicked")),
			HaveField("Data", HaveKeyWithValue("address", "a@example.com")))))
	})

	It("returns partial results when the batch itself fails", func(ctx context.Context) {
		verifier := verifierFunc(func(ctx context.Context, address string) types.Verdict {
			return types.Verdict{Address: address, Class: types.Valid}
		})
		addrs := []string{"a@example.com", "b@example.com", "c@example.com"}
		rs, stats := New(verifier, WithLogger(log)).Run(brokenContext{ctx}, addrs)
		Expect(rs.Total() + stats.Dropped).To(Equal(len(addrs)))
		Expect(stats.DroppedAddresses).To(ConsistOf(addrs))
		Expect(stats.Elapsed).To(BeNumerically(">", 0))
		Expect(hook.AllEntries()).To(ContainElement(And(
			HaveField("Level", logrus.ErrorLevel),
			HaveField("Data", HaveKeyWithValue("severity", "critical")),
			HaveField("Message", ContainSubstring("broken context")))))
	})

	It("drops what remains when cancelled", func(ctx context.Context) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		var once sync.Once
		verifier := verifierFunc(func(vctx context.Context, address string) types.Verdict {
			once.Do(cancel)
			<-vctx.Done()
			return types.Verdict{Address: address, Class: types.Valid}
		})
		addrs := make([]string, 20)
		for i := range addrs {
			addrs[i] = fmt.Sprintf("user%d@example.com", i)
		}
		rs, stats := New(verifier, WithWorkers(2), WithLogger(log)).Run(ctx, addrs)
		Expect(stats.Verdicts() + stats.Dropped).To(Equal(len(addrs)))
		Expect(stats.Dropped).To(BeNumerically(">=", len(addrs)-2))
		Expect(rs.Total()).To(Equal(stats.Verdicts()))
	})

	It("handles empty lists", func(ctx context.Context) {
		rs, stats := New(verifierFunc(func(context.Context, string) types.Verdict {
			panic("never called")
		}), WithLogger(log)).Run(ctx, nil)
		Expect(rs.Total()).To(BeZero())
		Expect(stats.Total).To(BeZero())
		Expect(stats.Dropped).To(BeZero())
	})

})
