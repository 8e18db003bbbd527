package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heapkit/heapalloc/pkg/heap"
	"github.com/heapkit/heapalloc/pkg/malloc"
)

func init() {
	rootCmd.AddCommand(newCheckCmd())
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run a fixed set of seed scenarios and report pass/fail",
		Long: `check exercises a fresh Allocator through a small set of scripted
scenarios (reverse-order frees, split placement, heap growth, and so on)
and reports which ones pass a final CheckHeap.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck()
		},
	}
}

type scenario struct {
	name string
	run  func(a *malloc.Allocator) error
}

var scenarios = []scenario{
	{"reverse-order-free-coalesces", scenarioReverseOrderFree},
	{"small-and-large-requests-separate", scenarioSizeClassSeparation},
	{"growth-beyond-one-chunk", scenarioHeapGrowth},
	{"every-other-block-freed", scenarioEveryOtherFree},
	{"reallocate-preserves-content", scenarioReallocatePreserves},
}

func runCheck() error {
	failures := 0
	for _, s := range scenarios {
		a, err := malloc.New(heap.New(heapSize), nil)
		if err != nil {
			return fmt.Errorf("setting up scenario %q: %w", s.name, err)
		}
		if err := s.run(a); err != nil {
			printInfo("FAIL %-40s %v\n", s.name, err)
			failures++
			continue
		}
		if err := a.CheckHeap(verbose); err != nil {
			printInfo("FAIL %-40s %v\n", s.name, err)
			failures++
			continue
		}
		printInfo("PASS %-40s\n", s.name)
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failures, len(scenarios))
	}
	return nil
}

func scenarioReverseOrderFree(a *malloc.Allocator) error {
	p1 := a.Allocate(16)
	p2 := a.Allocate(16)
	if p1 == nil || p2 == nil {
		return fmt.Errorf("allocation failed")
	}
	a.Free(p2)
	a.Free(p1)
	return nil
}

func scenarioSizeClassSeparation(a *malloc.Allocator) error {
	small := a.Allocate(64)
	large := a.Allocate(200)
	if small == nil || large == nil {
		return fmt.Errorf("allocation failed")
	}
	a.Free(small)
	a.Free(large)
	return nil
}

func scenarioHeapGrowth(a *malloc.Allocator) error {
	const payload = 4096
	n := malloc.ChunkSize/payload + 4
	ptrs := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		p := a.Allocate(payload)
		if p == nil {
			return fmt.Errorf("allocation %d failed", i)
		}
		ptrs = append(ptrs, p)
	}
	for _, p := range ptrs {
		a.Free(p)
	}
	return nil
}

func scenarioEveryOtherFree(a *malloc.Allocator) error {
	const n = 20
	ptrs := make([][]byte, n)
	for i := range ptrs {
		ptrs[i] = a.Allocate(32)
		if ptrs[i] == nil {
			return fmt.Errorf("allocation %d failed", i)
		}
	}
	for i := 0; i < n; i += 2 {
		a.Free(ptrs[i])
	}
	return nil
}

func scenarioReallocatePreserves(a *malloc.Allocator) error {
	p := a.Allocate(64)
	if p == nil {
		return fmt.Errorf("allocation failed")
	}
	for i := range p {
		p[i] = byte(i)
	}
	grown := a.Reallocate(p, 1024)
	if grown == nil {
		return fmt.Errorf("reallocate failed")
	}
	for i := 0; i < 64; i++ {
		if grown[i] != byte(i) {
			return fmt.Errorf("reallocate lost byte %d", i)
		}
	}
	return nil
}
