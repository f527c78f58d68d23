// Command skilly is a terminal client for the Skilly skill exchange.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// a missing .env is normal
	_ = godotenv.Load()

	cmd := newRootCmd(os.Stdout, os.Stderr, os.Getenv)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		}
		os.Exit(1)
	}
}
