package main

import (
	"os"
)

func main() {
	if err := NewCommand(defaultEnv()).Execute(); err != nil {
		os.Exit(1)
	}
}
