// Command web serves the SukoonAI application shell and its content pages.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sukoon-web: %v\n", err)
		os.Exit(1)
	}
}
