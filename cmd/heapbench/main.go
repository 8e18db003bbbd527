// Command heapbench drives a malloc.Allocator with either a randomized
// workload or a scripted set of seed scenarios, and reports the
// resulting metrics and heap consistency.
package main

func main() {
	execute()
}
