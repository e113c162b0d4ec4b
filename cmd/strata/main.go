package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/datalith/strata/pkg/config"
	"github.com/datalith/strata/pkg/logger"
	"github.com/datalith/strata/pkg/metadata"
)

var version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "strata",
		Short: "Strata - columnar storage format tooling",
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Strata v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	inspectCmd := &cobra.Command{
		Use:   "inspect <footer.json>",
		Short: "Print the row group and column chunk layout of a footer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			footer, err := metadata.JSONSerializer{}.Deserialize(data)
			if err != nil {
				return err
			}
			printFooter(footer)
			return nil
		},
	}
	root.AddCommand(inspectCmd)

	validateCmd := &cobra.Command{
		Use:   "validate-config <config.yaml>",
		Short: "Load and validate a writer configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("config ok: codec=%s page_max_values=%d dictionary=%v\n",
				cfg.Compression.Codec, cfg.Page.MaxValues, cfg.Dictionary.Enabled)
			return nil
		},
	}
	root.AddCommand(validateCmd)

	if err := logger.Init(logger.Config{Level: "warn"}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printFooter(f *metadata.FileFooter) {
	for gi, g := range f.RowGroups {
		fmt.Printf("row group %d: %d rows, %d columns\n", gi, g.NumRows, len(g.Columns))
		for _, c := range g.Columns {
			var bytes int64
			for _, p := range c.Pages {
				bytes += p.Range.Length
			}
			fmt.Printf("  %-30s %-12s pages=%-3d values=%-8d nulls=%-6d codec=%-8s %d bytes\n",
				c.Path, c.Type, len(c.Pages), c.TotalValues, c.NullCount, c.Codec, bytes)
			if c.DistinctCount >= 0 {
				fmt.Printf("  %-30s dictionary: %d distinct\n", "", c.DistinctCount)
			}
		}
	}
}
