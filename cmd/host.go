package cmd

import (
	"bytes"
	"fmt"
	"runtime"

	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/urfave/cli"
)

// Get the number of build workers to use by default. This is the number of
// physical cores or, if that cannot be detected, the number of logical CPUs.
func defaultThreads() int {
	cores, err := cpu.Counts(false)
	if err != nil || cores <= 0 {
		return runtime.NumCPU()
	}
	return cores
}

// List the host resources available to the BVH builder.
func ShowHostInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Resource", "Value"})

	if infos, err := cpu.Info(); err == nil && len(infos) != 0 {
		table.Append([]string{"CPU", infos[0].ModelName})
	}
	logical, err := cpu.Counts(true)
	if err != nil {
		logical = runtime.NumCPU()
	}
	table.Append([]string{"Logical CPUs", fmt.Sprint(logical)})
	table.Append([]string{"Default build threads", fmt.Sprint(defaultThreads())})

	if vm, err := mem.VirtualMemory(); err == nil {
		table.Append([]string{"Total memory", fmt.Sprintf("%.1f gb", float64(vm.Total)/1e9)})
		table.Append([]string{"Available memory", fmt.Sprintf("%.1f gb", float64(vm.Available)/1e9)})
	} else {
		logger.Warningf("could not query host memory: %v", err)
	}

	table.Render()
	logger.Noticef("host information:\n%s", buf.String())
	return nil
}
