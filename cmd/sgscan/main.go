package main

import (
	"os"

	"github.com/jamfkit/sgscan/cmd/cli"
)

func main() {
	os.Exit(cli.Execute())
}
