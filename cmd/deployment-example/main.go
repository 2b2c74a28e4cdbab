package main

import (
	"fmt"
	"os"

	"github.com/askiada/go-mlpipeline/internal/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
