package main

import (
	"os"

	"github.com/ZentaChain/ntlink/cmd/ntbot/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
