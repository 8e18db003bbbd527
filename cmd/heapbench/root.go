package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose  bool
	heapSize int
)

var rootCmd = &cobra.Command{
	Use:     "heapbench",
	Short:   "Drive a malloc.Allocator and report its behavior",
	Long:    `heapbench exercises a malloc.Allocator with randomized or scripted workloads, printing the resulting metrics and heap consistency.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every block visited while checking the heap")
	rootCmd.PersistentFlags().IntVar(&heapSize, "max-heap", 64<<20, "maximum bytes the arena may grow to")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printInfo(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, format, args...)
}
