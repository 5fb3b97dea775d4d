package main

import (
	"os"

	"github.com/mickamy/planview/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
