// Command schemagen writes the JSON schemas of rbplint's document types,
// with descriptions taken from Go doc comments.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/macropower/rbplint/api/v1beta1/lintconfigs"
	"github.com/macropower/rbplint/pkg/profiler"
	"github.com/macropower/rbplint/pkg/schema"
)

const module = "github.com/macropower/rbplint"

var (
	outDir = flag.String("o", "schemas", "Output directory for the generated schemas")
	root   = flag.String("root", ".", "Module root, used to read doc comments")
)

func main() {
	flag.Parse()

	out, err := filepath.Abs(*outDir)
	if err != nil {
		log.Fatalf("resolve output directory: %v", err)
	}

	err = os.Chdir(*root)
	if err != nil {
		log.Fatalf("change to module root: %v", err)
	}

	err = os.MkdirAll(out, 0o755)
	if err != nil {
		log.Fatalf("create output directory: %v", err)
	}

	for file, gen := range map[string]*schema.Generator{
		"profiler.json": schema.NewGenerator(&profiler.Config{},
			schema.WithID(profiler.SchemaID),
			schema.WithGoComments(module, "./pkg/profiler"),
		),
		"lintconfig.json": schema.NewGenerator(&lintconfigs.LintConfig{},
			schema.WithID(lintconfigs.SchemaID),
			schema.WithGoComments(module, "./api/v1beta1", "./pkg/check", "./pkg/rule"),
		),
	} {
		jsData, err := gen.Generate()
		if err != nil {
			log.Fatalf("generate %s: %v", file, err)
		}

		err = os.WriteFile(filepath.Join(out, file), jsData, 0o600)
		if err != nil {
			log.Fatalf("write %s: %v", file, err)
		}
	}
}
