package main

import (
	"fmt"
	"os"

	"github.com/HariharanV1992/CrawlChat-sub000/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
