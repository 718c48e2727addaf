package main

import (
	"errors"
	"os"

	"github.com/ipfs/go-cid"
	"github.com/urfave/cli/v2"

	car "github.com/quietpath/carstream"
)

var getCommand = &cli.Command{
	Name:      "get",
	Usage:     "write one block's raw bytes to stdout",
	ArgsUsage: "<file.car> <cid>",
	Action:    getAction,
}

func getAction(c *cli.Context) error {
	if c.Args().Len() < 2 {
		return errors.New("usage: carstream get <file.car> <cid>")
	}
	data, err := os.ReadFile(c.Args().Get(0))
	if err != nil {
		return err
	}
	want, err := cid.Parse(c.Args().Get(1))
	if err != nil {
		return err
	}

	rd, err := car.NewReader(data)
	if err != nil {
		return err
	}
	blk, ok := rd.Get(want)
	if !ok {
		return errors.New("carstream: block not found")
	}
	_, err = c.App.Writer.Write(blk.Bytes)
	return err
}
