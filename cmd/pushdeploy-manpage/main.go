package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/arthur-debert/pushdeploy/cmd/pushdeploy"
	"github.com/arthur-debert/pushdeploy/internal/version"
)

// Writes pushdeploy(1) to stdout, or one page per command into the
// directory given as first argument.
func main() {
	rootCmd := pushdeploy.NewRootCmd()

	header := &doc.GenManHeader{
		Title:   "PUSHDEPLOY",
		Section: "1",
		Source:  "pushdeploy " + version.Version,
		Manual:  "pushdeploy manual",
	}

	var err error
	if len(os.Args) > 1 {
		if err = os.MkdirAll(os.Args[1], 0755); err == nil {
			err = doc.GenManTree(rootCmd, header, os.Args[1])
		}
	} else {
		err = doc.GenMan(rootCmd, header, os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating man page: %v\n", err)
		os.Exit(1)
	}
}
