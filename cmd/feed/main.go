// Command feed is the terminal client of the social feed.
package main

import (
	"os"

	"feedsync/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
