package cmd

import (
	"os"

	"github.com/achilleasa/wavetrace/log"
	"github.com/urfave/cli"
)

var logger = log.New("wavetrace")

func setupLogging(ctx *cli.Context) error {
	if name := ctx.GlobalString("log-level"); name != "" {
		level, err := log.ParseLevel(name)
		if err != nil {
			return err
		}
		log.SetLevel(level)
	}

	if err := log.SetModuleLevels(ctx.GlobalStringSlice("log-module")); err != nil {
		return err
	}

	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}

	return nil
}

// Log err and exit.
func Fatal(err error) {
	logger.Error(err)
	os.Exit(1)
}
