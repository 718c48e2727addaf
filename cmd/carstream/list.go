package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	humanize "github.com/dustin/go-humanize"
	"github.com/multiformats/go-multicodec"
	"github.com/urfave/cli/v2"

	car "github.com/quietpath/carstream"
)

var listCommand = &cli.Command{
	Name:      "list",
	Usage:     "print the blocks in a CAR file",
	ArgsUsage: "<file.car>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "cids", Usage: "include each block's CID"},
		&cli.StringFlag{Name: "sizes", Usage: "show block sizes: human or bytes"},
	},
	Action: listAction,
}

func listAction(c *cli.Context) error {
	if c.Args().Len() < 1 {
		return errors.New("usage: carstream list [--cids] [--sizes=human|bytes] <file.car>")
	}
	data, err := os.ReadFile(c.Args().First())
	if err != nil {
		return err
	}
	it, err := car.NewBlockIterator(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "version %d, %d root(s)\n", it.Version, len(it.Roots))
	for {
		blk, err := it.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		name := multicodec.Code(blk.Cid.Prefix().Codec).String()
		line := name
		if c.Bool("cids") {
			line += " " + blk.Cid.String()
		}
		if s := sizeString(c.String("sizes"), len(blk.Bytes)); s != "" {
			line += " " + s
		}
		fmt.Fprintln(c.App.Writer, line)
	}
}

func sizeString(mode string, n int) string {
	switch mode {
	case "human":
		return fmt.Sprintf("[%s]", humanize.Bytes(uint64(n)))
	case "bytes":
		return fmt.Sprintf("[%d]", n)
	default:
		return ""
	}
}
