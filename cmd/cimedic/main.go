package main

import (
	"os"

	"github.com/dshills/cimedic/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
