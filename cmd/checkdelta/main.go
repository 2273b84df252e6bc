package main

import (
	"os"

	"checkdelta/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
