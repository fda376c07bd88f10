// Command analyze prints quick, human-readable heuristics about card
// manifest files. It summarizes asset counts, flags duplicate identifiers
// and missing image URLs, and reports whether a manifest can satisfy the
// default pair count for a new game.
package main

import (
	"fmt"
	"os"

	"github.com/memolab/memory-server/game/catalog"
	"github.com/memolab/memory-server/game/engine"
)

func main() {
	dir := "manifests"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	paths, err := catalog.ListManifests(dir)
	if err != nil {
		fmt.Printf("Error listing manifests in %s: %v\n", dir, err)
		os.Exit(1)
	}
	if len(paths) == 0 {
		fmt.Printf("No manifest files found in %s\n", dir)
		return
	}

	for _, path := range paths {
		fmt.Printf("\n=== Analyzing %s ===\n", path)
		analyzeManifest(path)
	}
}

func analyzeManifest(path string) {
	manifest, err := catalog.LoadManifest(path)
	if err != nil {
		// LoadManifest validates; report the defect and keep raw counts
		// obtainable where possible.
		fmt.Printf("Invalid manifest: %v\n", err)
		return
	}

	fmt.Printf("Name: %s\n", manifest.Name)
	fmt.Printf("Assets: %d\n", len(manifest.Assets))

	formats := make(map[string]int)
	missingDims := 0
	for _, a := range manifest.Assets {
		formats[a.Format]++
		if a.Width == 0 || a.Height == 0 {
			missingDims++
		}
	}
	for format, count := range formats {
		if format == "" {
			format = "(unknown)"
		}
		fmt.Printf("  format %s: %d\n", format, count)
	}
	if missingDims > 0 {
		fmt.Printf("  WARNING: %d assets missing dimensions\n", missingDims)
	}

	if len(manifest.Assets) < engine.DefaultPairCount {
		fmt.Printf("  WARNING: only %d assets, %d needed to deal a default game\n",
			len(manifest.Assets), engine.DefaultPairCount)
	} else {
		fmt.Printf("  OK: can deal a default game (%d pairs)\n", engine.DefaultPairCount)
	}
}
