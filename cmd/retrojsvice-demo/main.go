package main

import (
	"os"

	"github.com/ttalvitie/retrojsvice/cmd/retrojsvice-demo/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
