// The main package for the producthunt-scraper executable.
package main

import (
	"github.com/RaihanArvi/producthunt-scraper/cmd"
)

// main defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
