// Command rootfind solves scalar equations given as expressions.
//
//	rootfind solve --method brentq --f "x**3 - x - k" --param k=2 --a 1 --b 2
//	rootfind batch problems.yaml
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
