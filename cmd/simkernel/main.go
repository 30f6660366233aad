// Command simkernel is the reference driver for the tick-quantum
// simulation kernel: it assembles the in-code example model tree, runs
// it for a tick budget, and reports the scheduler's counters.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "simkernel:", err)
		os.Exit(1)
	}
}
