// ABOUTME: Entry point for the artificer workflow engine CLI
// ABOUTME: Delegates to the cli package and propagates its exit code

package main

import (
	"os"

	"github.com/loferris/artificer/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
