package main

import (
	"os"

	"sqlgate/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
