package main

import (
	"os"

	"github.com/ymatsuda/machichat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
