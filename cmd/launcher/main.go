package main

import (
	"os"

	"github.com/bnema/job-launcher/cmd"
)

func main() {
	os.Exit(cmd.ExitCode(cmd.Execute()))
}
