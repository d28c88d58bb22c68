package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/cxxbind"
	"github.com/jward/cxxbind/internal/frontend"
)

var (
	flagParseOut        string
	flagParseIncludeDir string
)

var parseCmd = &cobra.Command{
	Use:   "parse <header...>",
	Short: "Parse headers into a frontend entity list",
	Long: "Runs the built-in header frontend and writes the entity list it reports.\n" +
		"With --out the list is written as .json or .cbor; otherwise JSON goes to stdout.",
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVar(&flagParseOut, "out", "", "entity list file (.json or .cbor)")
	parseCmd.Flags().StringVar(&flagParseIncludeDir, "include-dir", "", "include root that header names are recorded relative to")
}

func runParse(cmd *cobra.Command, args []string) error {
	engine, err := cxxbind.New(cxxbind.WithLogger(logger))
	if err != nil {
		return outputError("parse", err)
	}
	defer engine.Close()

	in, err := engine.ParseHeaders(context.Background(), flagParseIncludeDir, args)
	if err != nil {
		return outputError("parse", err)
	}

	if flagParseOut == "" {
		if err := frontend.EncodeJSON(os.Stdout, in); err != nil {
			return outputError("parse", err)
		}
		return nil
	}
	if err := frontend.Save(flagParseOut, in); err != nil {
		return outputError("parse", err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %d entities from %d headers to %s\n", len(in.Entities), len(in.Headers), flagParseOut)

	one := 1
	return outputResult(CLIResult{
		Command: "parse",
		Results: CLIParseResult{
			Output:   flagParseOut,
			Headers:  len(in.Headers),
			Entities: len(in.Entities),
		},
		TotalCount: &one,
	})
}
