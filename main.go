// The main package for the sitemapper executable.
package main

import (
	"github.com/JakeFAU/sitemapper/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
