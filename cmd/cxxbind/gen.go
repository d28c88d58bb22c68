package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/cxxbind"
	"github.com/jward/cxxbind/scripts"
)

var (
	flagEntities          string
	flagIncludeDir        string
	flagDirectives        string
	flagPreset            string
	flagOut               string
	flagModule            string
	flagShimNamespace     string
	flagWorkers           int
	flagMaxInstantiations int
	flagMaxTemplateDepth  int
	flagNoRecord          bool
)

var genCmd = &cobra.Command{
	Use:   "gen [header...]",
	Short: "Generate the bridge declaration and native shims",
	Long: "Reads C++ entities either from headers given as arguments or from an --entities file,\n" +
		"applies the directives, and writes <module>.bridge, <module>_shim.h and <module>_shim.cc to --out.\n" +
		"The run is recorded in the database for the inspect commands unless --no-record is set.",
	RunE: runGen,
}

func init() {
	genCmd.Flags().StringVar(&flagEntities, "entities", "", "frontend entity list (.json or .cbor) instead of header arguments")
	genCmd.Flags().StringVar(&flagIncludeDir, "include-dir", "", "include root that header names are recorded relative to")
	genCmd.Flags().StringVar(&flagDirectives, "directives", "", "directive file (.toml or .risor)")
	genCmd.Flags().StringVar(&flagPreset, "preset", "", "built-in directive script: all|records|functions")
	genCmd.Flags().StringVar(&flagOut, "out", "gen", "output directory")
	genCmd.Flags().StringVar(&flagModule, "module", "", "bridge module name (default ffi)")
	genCmd.Flags().StringVar(&flagShimNamespace, "shim-namespace", "", "C++ namespace for generated shims")
	genCmd.Flags().IntVar(&flagWorkers, "workers", 0, "concurrent header parsers (default GOMAXPROCS)")
	genCmd.Flags().IntVar(&flagMaxInstantiations, "max-instantiations", 0, "cap on template instantiations")
	genCmd.Flags().IntVar(&flagMaxTemplateDepth, "max-template-depth", 0, "cap on template argument nesting")
	genCmd.Flags().BoolVar(&flagNoRecord, "no-record", false, "do not record the run in the database")
}

func runGen(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := context.Background()

	if (flagEntities == "") == (len(args) == 0) {
		return outputError("gen", fmt.Errorf("give either header arguments or --entities"))
	}
	if (flagDirectives == "") == (flagPreset == "") {
		return outputError("gen", fmt.Errorf("give either --directives or --preset"))
	}

	opts := []cxxbind.Option{
		cxxbind.WithLogger(logger),
		cxxbind.WithWorkers(flagWorkers),
		cxxbind.WithMaxInstantiations(flagMaxInstantiations),
		cxxbind.WithMaxTemplateDepth(flagMaxTemplateDepth),
	}
	if flagModule != "" {
		opts = append(opts, cxxbind.WithModuleName(flagModule))
	}
	if flagShimNamespace != "" {
		opts = append(opts, cxxbind.WithShimNamespace(flagShimNamespace))
	}
	directivesPath := flagDirectives
	if flagPreset != "" {
		opts = append(opts, cxxbind.WithScriptsFS(scripts.FS))
		directivesPath = flagPreset + ".risor"
	}

	var dbPath string
	if !flagNoRecord {
		p, err := currentDBPath()
		if err != nil {
			return outputError("gen", err)
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return outputError("gen", fmt.Errorf("creating %s: %w", filepath.Dir(p), err))
		}
		dbPath = p
		opts = append(opts, cxxbind.WithStore(dbPath))
	}

	engine, err := cxxbind.New(opts...)
	if err != nil {
		return outputError("gen", fmt.Errorf("creating engine: %w", err))
	}
	defer engine.Close()

	var in *cxxbind.Input
	if flagEntities != "" {
		in, err = cxxbind.LoadInput(flagEntities)
	} else {
		in, err = engine.ParseHeaders(ctx, flagIncludeDir, args)
	}
	if err != nil {
		return outputError("gen", err)
	}

	d, err := engine.LoadDirectives(ctx, directivesPath, in)
	if err != nil {
		return outputError("gen", err)
	}

	res, err := engine.Generate(ctx, in, d)
	if err != nil {
		return outputError("gen", err)
	}
	files, err := res.WriteFiles(flagOut)
	if err != nil {
		return outputError("gen", err)
	}

	fmt.Fprintf(os.Stderr, "Generated %s in %s (%d accepted, %d excluded, %d shims)\n",
		res.Output.Module, time.Since(start).Round(time.Millisecond),
		res.Stats.Accepted, res.Stats.Excluded, res.Stats.Shims)
	if dbPath != "" {
		fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	}

	one := 1
	return outputResult(CLIResult{
		Command:    "gen",
		Results:    genResultToCLI(res, files),
		TotalCount: &one,
	})
}

func genResultToCLI(res *cxxbind.Result, files []string) CLIGenResult {
	out := CLIGenResult{
		Module: res.Output.Module,
		Digest: res.Output.Digest,
		Files:  files,
		Stats: CLIStats{
			Items:    res.Stats.Items,
			Accepted: res.Stats.Accepted,
			Excluded: res.Stats.Excluded,
			Emitted:  res.Stats.Emitted,
			Shims:    res.Stats.Shims,
			ByReason: make(map[string]int, len(res.Stats.ByReason)),
		},
		Diagnostics: make([]CLIDiagnostic, 0, len(res.Diagnostics)),
		Renames:     make([]CLIRename, 0, len(res.Renames)),
	}
	for reason, n := range res.Stats.ByReason {
		out.Stats.ByReason[string(reason)] = n
	}
	for _, d := range res.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, diagnosticToCLI(d))
	}
	for _, rn := range res.Renames {
		out.Renames = append(out.Renames, renameToCLI(rn))
	}
	sort.Strings(out.Files)
	return out
}
