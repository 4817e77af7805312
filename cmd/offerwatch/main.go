// Command offerwatch watches ride-hailing offers on screen and rates them.
package main

import (
	"fmt"
	"os"

	"github.com/motoristapro/offerwatch/cmd/offerwatch/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
