package main

import (
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/heapkit/heapalloc/pkg/heap"
	"github.com/heapkit/heapalloc/pkg/malloc"
	"github.com/heapkit/heapalloc/pkg/stats"
)

var (
	runOps        int
	runMaxPayload int
	runSeed       int64
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().IntVar(&runOps, "ops", 10000, "number of allocate/free/reallocate operations to perform")
	cmd.Flags().IntVar(&runMaxPayload, "max-payload", 4096, "largest payload size, in bytes, a single request may ask for")
	cmd.Flags().Int64Var(&runSeed, "seed", 1, "random seed for the workload")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a randomized allocate/free/reallocate workload",
		Long: `run drives an Allocator through a random mix of Allocate, Free, and
Reallocate calls, printing final metrics and a heap consistency check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkload()
		},
	}
}

// liveBlock is one payload this process currently owns, tracked so the
// workload can pick an existing allocation to free or resize.
type liveBlock struct {
	payload []byte
}

func runWorkload() error {
	reg := stats.New()
	a, err := malloc.New(heap.New(heapSize), reg)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(runSeed))
	live := make([]liveBlock, 0, runOps)

	for i := 0; i < runOps; i++ {
		switch {
		case len(live) == 0 || rng.Intn(3) == 0:
			n := rng.Intn(runMaxPayload) + 1
			p := a.Allocate(n)
			if p != nil {
				for j := range p {
					p[j] = byte(i)
				}
				live = append(live, liveBlock{payload: p})
			}

		case rng.Intn(2) == 0:
			idx := rng.Intn(len(live))
			a.Free(live[idx].payload)
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]

		default:
			idx := rng.Intn(len(live))
			n := rng.Intn(runMaxPayload) + 1
			grown := a.Reallocate(live[idx].payload, n)
			live[idx].payload = grown
		}
	}

	if err := a.CheckHeap(verbose); err != nil {
		return err
	}

	snap := reg.Snapshot()
	printInfo("operations:        %d\n", runOps)
	printInfo("live allocations:  %d\n", len(live))
	printInfo("alloc calls:       %d\n", snap.AllocCalls)
	printInfo("free calls:        %d\n", snap.FreeCalls)
	printInfo("realloc calls:     %d\n", snap.ReallocCalls)
	printInfo("extend calls:      %d (%d bytes)\n", snap.ExtendCalls, snap.ExtendBytes)
	printInfo("splits:            %d\n", snap.SplitCount)
	printInfo("coalesce forward:  %d\n", snap.CoalesceForward)
	printInfo("coalesce backward: %d\n", snap.CoalesceBackward)
	printInfo("coalesce both:     %d\n", snap.CoalesceBoth)
	printInfo("find-fit misses:   %d\n", snap.FindFitMisses)
	printInfo("heap bytes:        %d\n", snap.HeapBytes)
	printInfo("free list blocks:  %d (%d bytes)\n", snap.FreeListBlocks, snap.FreeBytes)
	printInfo("heap check:        ok\n")
	return nil
}
