package main

import (
	"os"

	"github.com/JonMunkholm/audience/cmd/contactctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
