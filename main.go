// The main package for the websight executable.
package main

import (
	"github.com/JakeFAU/websight/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
