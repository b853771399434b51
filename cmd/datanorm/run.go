package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"datanorm-pricing/db/ingestion"
	"datanorm-pricing/db/sqlstore"
	"datanorm-pricing/decision/catalog"
	"datanorm-pricing/decision/pricing"
	apperrors "datanorm-pricing/pkg/errors"
	"datanorm-pricing/pkg/platform"
	"datanorm-pricing/report"
)

func run(c *cli.Context) error {
	ctx := c.Context

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := platform.NewLogger(cfg.LogLevel, cfg.LogFormat, c.App.ErrWriter)

	limit, err := parseLimit(c.String("limit"))
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	file := cfg.File
	if c.Args().Present() {
		file = c.Args().First()
	}
	if _, err := ingestion.NewLoader(store).WithLogger(logger).LoadFile(ctx, file, cfg.InputEncoding); err != nil {
		return err
	}

	engine := pricing.NewEngine(store).
		WithRoundDigits(cfg.RoundDigits).
		WithLogger(logger)

	req := pricing.QuoteRequest{
		OverheadPct: decimal.NewFromFloat(c.Float64("overhead")),
		Limit:       limit,
	}
	if c.IsSet("qnt") {
		qty := decimal.NewFromFloat(c.Float64("qnt"))
		req.Quantity = &qty
	}

	out := c.App.Writer
	switch {
	case c.String("export") != "":
		return runExport(c, engine, req, cfg, logger)
	case c.String("article") != "":
		return runLookup(c, store, c.String("article"))
	case c.String("prices") != "":
		req.ArticleNo = c.String("prices")
		req.Limit = nil
		quotes, err := engine.CalculatePrices(ctx, req)
		if err != nil {
			return err
		}
		if len(quotes) == 0 {
			return notFound(req.ArticleNo)
		}
		return report.WriteJSON(out, quotes)
	case limit != nil && *limit == 1:
		return runOverview(c, store, engine, req, out)
	default:
		quotes, err := engine.CalculatePrices(ctx, req)
		if err != nil {
			return err
		}
		return report.WriteJSON(out, quotes)
	}
}

func runExport(c *cli.Context, engine *pricing.Engine, req pricing.QuoteRequest, cfg *platform.Config, logger zerolog.Logger) error {
	// A single article selected by --article or --prices overrides the limit.
	if no := c.String("article"); no != "" {
		req.ArticleNo = no
	} else if no := c.String("prices"); no != "" {
		req.ArticleNo = no
	}

	quotes, err := engine.CalculatePrices(c.Context, req)
	if err != nil {
		return err
	}

	path, err := report.ResolveExportPath(c.String("export"), cfg.OutputFolder)
	if err != nil {
		return err
	}
	if err := report.ExportFile(path, quotes, req.HasTotals(), cfg.OutputEncoding); err != nil {
		return err
	}

	logger.Info().Str("path", path).Int("quotes", len(quotes)).Msg("prices exported")
	fmt.Fprintf(c.App.Writer, "Exported results to %s\n", path)
	return nil
}

func runLookup(c *cli.Context, store catalog.Reader, articleNo string) error {
	view, err := store.LookupArticle(c.Context, articleNo)
	if err != nil {
		return err
	}
	if view == nil {
		return notFound(articleNo)
	}
	return report.WriteJSON(c.App.Writer, report.NewArticleDocument(view))
}

// runOverview prints the first article together with its price quote.
func runOverview(c *cli.Context, store catalog.Reader, engine *pricing.Engine, req pricing.QuoteRequest, out io.Writer) error {
	articleNo, ok, err := store.FirstArticleNo(c.Context)
	if err != nil {
		return err
	}
	if !ok {
		_, err := fmt.Fprintln(out, "[]")
		return err
	}

	view, err := store.LookupArticle(c.Context, articleNo)
	if err != nil {
		return err
	}
	req.ArticleNo = articleNo
	quotes, err := engine.CalculatePrices(c.Context, req)
	if err != nil {
		return err
	}

	doc := report.Overview{Article: report.NewArticleDocument(view)}
	if len(quotes) > 0 {
		doc.Prices = &quotes[0]
	}
	return report.WriteJSON(out, doc)
}

func loadConfig(c *cli.Context) (*platform.Config, error) {
	cfg, err := platform.LoadConfig(c.String("env-file"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("encoding") {
		cfg.InputEncoding = c.String("encoding")
	}
	if c.IsSet("output-encoding") {
		cfg.OutputEncoding = c.String("output-encoding")
	}
	if c.IsSet("round-digits") {
		cfg.RoundDigits = c.Float64("round-digits")
	}
	if c.IsSet("store") {
		cfg.Store = c.String("store")
	}
	if c.IsSet("store-dsn") {
		cfg.StoreDSN = c.String("store-dsn")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(cfg *platform.Config) (catalog.Store, error) {
	switch cfg.Store {
	case platform.StoreSQLite:
		return sqlstore.Open(sqlstore.DriverSQLite, cfg.StoreDSN)
	case platform.StorePostgres:
		return sqlstore.Open(sqlstore.DriverPostgres, cfg.StoreDSN)
	default:
		return catalog.NewMemoryStore(), nil
	}
}

// parseLimit accepts a non-negative integer, or "none"/"all" for unlimited.
func parseLimit(value string) (*int, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "none", "all":
		return nil, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("limit must be an integer, 'None', or 'all', got: %s", value), 2)
	}
	if n < 0 {
		return nil, cli.Exit("limit must be non-negative", 2)
	}
	return &n, nil
}

func notFound(articleNo string) error {
	return cli.Exit("\n"+apperrors.NewArticleNotFoundError(articleNo).Message+"\n", 1)
}
