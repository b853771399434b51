// Datanorm CLI - catalog loading and sale price calculation
//
// Usage:
//
//	datanorm [file] [--overhead 12.5] [--qnt 10]
//	datanorm [file] --article ART001
//	datanorm [file] --prices ART001 --export prices.csv
//	datanorm [file] --limit all --export prices.xlsx
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func init() {
	// Prices are written as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Error())
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "datanorm",
		Usage:     "Parse DATANORM files, load them into a catalog and calculate sale prices",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		ArgsUsage: "[file]",
		Writer:    stdout,
		ErrWriter: stderr,

		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:  "overhead",
				Value: 0,
				Usage: "Overhead percentage applied on top of the purchase price",
			},
			&cli.StringFlag{
				Name:  "article",
				Usage: "Look up a single article number (raw data, no price calculation)",
			},
			&cli.StringFlag{
				Name:  "prices",
				Usage: "Calculate prices for a single article number",
			},
			&cli.StringFlag{
				Name:  "export",
				Usage: "Export calculated prices to the given path (.csv or .xlsx); relative paths go to the output folder",
			},
			&cli.StringFlag{
				Name:  "limit",
				Value: "1",
				Usage: "Number of articles to print or export; 'none' or 'all' for unlimited",
			},
			&cli.Float64Flag{
				Name:  "qnt",
				Usage: "Order quantity; selects graduated prices and adds totals",
			},
			&cli.StringFlag{
				Name:  "encoding",
				Usage: "Input charset (overrides DATANORM_INPUT_ENCODING)",
			},
			&cli.StringFlag{
				Name:  "output-encoding",
				Usage: "CSV export charset (overrides DATANORM_OUTPUT_ENCODING)",
			},
			&cli.Float64Flag{
				Name:  "round-digits",
				Usage: "Decimal digits for derived figures (overrides DATANORM_ROUND_DIGITS)",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Catalog backend: memory, sqlite or postgres (overrides DATANORM_STORE)",
			},
			&cli.StringFlag{
				Name:  "store-dsn",
				Usage: "Connection string for sqlite or postgres (overrides DATANORM_STORE_DSN)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (overrides DATANORM_LOG_LEVEL)",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "dotenv file read before the environment",
			},
		},

		Action: run,

		// Exit codes are handled by main so the app can run inside tests.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}
