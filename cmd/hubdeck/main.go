package main

import (
	"os"

	"hubdeck/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args))
}
