// chatstat - Chat Transcript Statistics
//
// chatstat parses exported messenger transcripts into a table of messages
// and computes per-author statistics over it.
package main

import (
	"os"

	"github.com/ccollicutt/chatstat/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
