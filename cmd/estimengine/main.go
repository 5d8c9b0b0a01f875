// Command estimengine issues moving-job time estimates with confidence
// scores and records their outcomes.
package main

import (
	"os"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
