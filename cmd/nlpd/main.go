package main

import (
	"os"

	"nlpd/internal/cli"
)

func main() { os.Exit(cli.Main()) }
