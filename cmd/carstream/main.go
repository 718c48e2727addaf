// Command carstream inspects CAR v1/v2 files from the command line. It is a
// thin shell over the public carstream API: list walks an archive with a
// BlockIterator, get loads it into a Reader and extracts a single block.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "carstream",
		Usage: "inspect Content-Addressable aRchive (CAR) files",
		Commands: []*cli.Command{
			listCommand,
			getCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
