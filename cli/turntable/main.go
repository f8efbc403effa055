package main

import (
	"os"

	turntablecmder "github.com/papercomputeco/turntable/cmd/turntable"
)

func main() {
	cmd := turntablecmder.NewTurntableCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
