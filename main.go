package main

import (
	"os"

	"github.com/BatmanBruc/ofmbot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
