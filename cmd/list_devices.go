package cmd

import (
	"bytes"
	"fmt"

	"github.com/achilleasa/wavetrace/tracer/device"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// List available compute devices.
func ListDevices(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	devices := device.List()

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Device", "Name", "Workers", "Arch"})
	for index, info := range devices {
		table.Append([]string{
			fmt.Sprintf("%02d", index),
			info.Name,
			fmt.Sprint(info.Workers),
			info.Arch,
		})
	}
	table.Render()

	logger.Noticef("system provides %d compute device(s):\n%s", len(devices), buf.String())
	return nil
}
