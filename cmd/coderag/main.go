// Command coderag is the unified CLI for the continuous code-search indexing
// engine: detect the project under the working directory, index it, watch it,
// query it, and serve it over HTTP.
package main

import (
	"os"

	"github.com/coderag/coderag/cmd/coderag/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
