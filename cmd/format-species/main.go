// format-species wraps the "Species" value of each record in a JSON array of tree records in <i>
// tags and assigns each record a 1-based "index".
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"

	"github.com/sfomuseum/go-geojson-media/operations/species"
)

func main() {

	var input string
	var output string
	var verbose bool

	flag.StringVar(&input, "input", "tree-density-hong-kong.json", "The path to a JSON array of species records.")
	flag.StringVar(&output, "output", "", "The path to write formatted records to. Defaults to -input.")
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose (debug) logging.")

	flag.Parse()

	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	if output == "" {
		output = input
	}

	ctx := context.Background()

	count, err := species.FormatFile(ctx, input, output)

	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Formatted %d records, written to %s\n", count, output)
}
