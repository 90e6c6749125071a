package main

import (
	"os"

	"github.com/bnema/lisp-sessions/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
