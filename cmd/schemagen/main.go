// Command schemagen generates Schema methods for annotated Go types.
//
// It scans a package directory for type declarations carrying the
// //schema:derive directive, resolves their schema attributes, and writes
// one *_schema.gen.go file per input file. It is meant to run from
// go:generate:
//
//	//go:generate go run github.com/google-ai-go/googleai/cmd/schemagen
//
// A failure to derive one type does not stop generation for the others; the
// command reports every failure and exits nonzero.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google-ai-go/googleai/internal/gen"
	"github.com/google-ai-go/googleai/internal/source"
	"github.com/google-ai-go/googleai/internal/synth"
)

func main() {
	fs := flag.NewFlagSet("schemagen", flag.ExitOnError)
	schemaImport := fs.String("schema", envOrDefault("SCHEMAGEN_SCHEMA", gen.DefaultSchemaImport),
		"import path of the schema package in generated code")
	dryRun := fs.Bool("n", false, "print generated file names without writing them")
	verbose := fs.Bool("verbose", envBool("SCHEMAGEN_VERBOSE", false), "log per-type progress")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: schemagen [flags] [dir]\n\n")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	dir := fs.Arg(0)
	if dir == "" {
		dir = "."
	}

	if err := run(dir, *schemaImport, *dryRun); err != nil {
		slog.Error("generation failed", "error", err)
		os.Exit(1)
	}
}

func run(dir, schemaImport string, dryRun bool) error {
	pkg, err := source.LoadDir(dir)
	if err != nil {
		return err
	}

	// Each type derives independently: a failing type is reported and
	// excluded, the rest still generate.
	failed := 0
	exprs := make(map[string]*synth.Expr)
	byFile := make(map[string][]*gen.Unit)
	var files []string
	for _, d := range pkg.Decls {
		e, err := synth.Synthesize(d.Type)
		if err != nil {
			slog.Error("cannot derive schema", "type", d.Type.Name, "error", err)
			failed++
			continue
		}
		slog.Info("derived schema", "type", d.Type.Name, "file", d.File)
		exprs[d.Type.Name] = e
		if len(byFile[d.File]) == 0 {
			files = append(files, d.File)
		}
		byFile[d.File] = append(byFile[d.File], &gen.Unit{
			Name:      d.Type.Name,
			Interface: d.Interface,
			Expr:      e,
		})
	}

	if err := synth.DetectCycle(exprs); err != nil {
		return err
	}

	for _, file := range files {
		outName := strings.TrimSuffix(file, ".go") + "_schema.gen.go"
		outPath := filepath.Join(pkg.Dir, outName)
		src, err := gen.File(pkg.Name, byFile[file], schemaImport)
		if err != nil {
			return fmt.Errorf("%s: %w", outName, err)
		}
		if dryRun {
			fmt.Println(outPath)
			continue
		}
		if err := os.WriteFile(outPath, src, 0o644); err != nil {
			return err
		}
		slog.Info("wrote", "file", outPath, "types", len(byFile[file]))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d types failed", failed, len(pkg.Decls))
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
