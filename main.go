// ./main.go
package main

import (
	"github.com/xkilldash9x/websession/cmd"
)

// main is the entry point for the websession CLI.
func main() {
	// The cmd package handles command-line parsing, configuration, and
	// execution.
	cmd.Execute()
}
