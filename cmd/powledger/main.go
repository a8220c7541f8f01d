// powledger is the command-line interface to a local proof-of-work ledger.
//
// Usage:
//
//	powledger init                  Seed the genesis block
//	powledger mine <data>...        Mine and append blocks
//	powledger validate              Check the stored chain
//	powledger show [--json]         Print the chain
//	powledger export <file>         Write the chain document
//	powledger select <file>         Run fork choice against a document
//	powledger demo                  Run the in-memory demo
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
