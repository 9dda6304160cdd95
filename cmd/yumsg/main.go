package main

import (
	"os"

	"yumsg/cmd/yumsg/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
