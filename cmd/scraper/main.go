package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/parser"
	"github.com/aluiziolira/go-scrape-catalog/pipeline"
	"github.com/aluiziolira/go-scrape-catalog/scraper"
	"github.com/lepinkainen/humanlog"
)

var execute = run

func main() {
	execute()
}

// CLI holds the command line flags. Zero values leave the loaded
// configuration untouched.
type CLI struct {
	Config        string        `help:"Path to a YAML config file (defaults to ./scraper.yaml when present)" type:"path"`
	BaseURL       string        `help:"Catalog URL to start from"`
	Pages         int           `help:"Maximum listing pages to scrape"`
	Delay         time.Duration `help:"Delay between page requests (e.g. 1s, 1500ms)"`
	Timeout       time.Duration `help:"Per-request timeout"`
	MaxRetries    int           `help:"Retry attempts for transient fetch failures (-1 keeps the configured value)" default:"-1"`
	CSV           string        `name:"csv" help:"CSV output path"`
	JSON          string        `name:"json" help:"JSON output path"`
	SQLite        string        `name:"sqlite" help:"SQLite output path"`
	MetricsFile   string        `help:"Write Prometheus metrics to this textfile after the run"`
	RespectRobots bool          `help:"Respect robots.txt directives"`
	Sample        bool          `help:"Write the built-in sample records instead of scraping"`
	SampleCSV     string        `name:"sample-csv" help:"CSV path for --sample output"`
	SampleJSON    string        `name:"sample-json" help:"JSON path for --sample output"`
	Verbose       bool          `short:"v" help:"Enable debug logging"`
}

func run() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("scraper"),
		kong.Description("Scrape a paginated book catalog into CSV, JSON and SQLite files."),
		kong.UsageOnError(),
	)

	if err := ctx.Run(); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// Run executes the scrape, or writes the sample records when --sample is set.
func (c *CLI) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	c.apply(cfg)

	slog.SetDefault(newLogger(cfg.Verbose))

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Sample {
		return writeSample(newSampleWriter(cfg), os.Stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return scrape(ctx, cfg, newWriter(cfg), os.Stdout)
}

func (c *CLI) apply(cfg *config.Config) {
	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL
	}
	if c.Pages != 0 {
		cfg.MaxPages = c.Pages
	}
	if c.Delay != 0 {
		cfg.Delay = c.Delay
	}
	if c.Timeout != 0 {
		cfg.Timeout = c.Timeout
	}
	if c.MaxRetries >= 0 {
		cfg.MaxRetries = c.MaxRetries
	}
	if c.CSV != "" {
		cfg.CSVFile = c.CSV
	}
	if c.JSON != "" {
		cfg.JSONFile = c.JSON
	}
	if c.SQLite != "" {
		cfg.SQLiteFile = c.SQLite
	}
	if c.SampleCSV != "" {
		cfg.SampleCSVFile = c.SampleCSV
	}
	if c.SampleJSON != "" {
		cfg.SampleJSONFile = c.SampleJSON
	}
	if c.MetricsFile != "" {
		cfg.MetricsFile = c.MetricsFile
	}
	if c.RespectRobots {
		cfg.RespectRobotsTxt = true
	}
	if c.Verbose {
		cfg.Verbose = true
	}
}

func newWriter(cfg *config.Config) *pipeline.MultiWriter {
	var writers []pipeline.OutputWriter
	if cfg.CSVFile != "" {
		writers = append(writers, pipeline.NewCSVWriter(cfg.CSVFile))
	}
	if cfg.JSONFile != "" {
		writers = append(writers, pipeline.NewJSONWriter(cfg.JSONFile))
	}
	if cfg.SQLiteFile != "" {
		writers = append(writers, pipeline.NewSQLiteWriter(cfg.SQLiteFile))
	}
	return pipeline.NewMultiWriter(writers...)
}

// newSampleWriter targets the sample paths so a sample run never replaces
// scraped output.
func newSampleWriter(cfg *config.Config) *pipeline.MultiWriter {
	var writers []pipeline.OutputWriter
	if cfg.SampleCSVFile != "" {
		writers = append(writers, pipeline.NewCSVWriter(cfg.SampleCSVFile))
	}
	if cfg.SampleJSONFile != "" {
		writers = append(writers, pipeline.NewJSONWriter(cfg.SampleJSONFile))
	}
	return pipeline.NewMultiWriter(writers...)
}

func scrape(ctx context.Context, cfg *config.Config, writer *pipeline.MultiWriter, out io.Writer) error {
	slog.Info("starting scrape",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("max_pages", cfg.MaxPages),
		slog.Duration("delay", cfg.Delay),
	)

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		return fmt.Errorf("initialising scraper: %w", err)
	}

	p := pipeline.NewPipeline()
	result, runErr := s.Run(ctx, p)
	if runErr != nil {
		// Partial results are kept; the failure shows up in the summary.
		slog.Warn("scrape ended early",
			slog.String("stop_reason", string(result.StopReason)),
			slog.Int("records", result.TotalCount()),
		)
	}

	var writeErr error
	if result.TotalCount() == 0 {
		// Keep whatever an earlier run wrote.
		slog.Warn("no records scraped, leaving existing outputs untouched",
			slog.String("outputs", writer.Path()),
		)
	} else {
		writeErr = p.Flush(writer)
		if writeErr == nil {
			if err := writer.Validate(); err != nil {
				writeErr = fmt.Errorf("output validation failed: %w", err)
			}
		}
	}

	if err := s.Metrics.WriteTextfile(cfg.MetricsFile); err != nil {
		slog.Error("write metrics textfile", slog.String("path", cfg.MetricsFile), slog.Any("error", err))
	}

	printSummary(out, result, p.GetMetrics(), writer, runErr)
	return writeErr
}

func writeSample(writer *pipeline.MultiWriter, out io.Writer) error {
	if len(writer.Writers()) == 0 {
		return fmt.Errorf("sample mode needs a sample CSV or JSON path")
	}
	records := sampleRecords()
	if err := writer.Write(records); err != nil {
		return err
	}
	slog.Info("sample data written",
		slog.Int("records", len(records)),
		slog.String("outputs", writer.Path()),
	)
	fmt.Fprintf(out, "Sample data written: %d records to %s\n", len(records), writer.Path())
	return nil
}

func sampleRecords() []models.CatalogRecord {
	return []models.CatalogRecord{
		{
			Title:        "A Light in the Attic",
			Price:        "£51.77",
			Rating:       models.RatingThree,
			Availability: "In stock (22 available)",
			BookURL:      "https://books.toscrape.com/catalogue/a-light-in-the-attic_1000/index.html",
			ImageURL:     "https://books.toscrape.com/media/cache/2c/da/2cdad67c44b002e7ead0cc35693c0e8b.jpg",
			Category:     "Poetry",
		},
		{
			Title:        "Tipping the Velvet",
			Price:        "£53.74",
			Rating:       models.RatingOne,
			Availability: "In stock (20 available)",
			BookURL:      "https://books.toscrape.com/catalogue/tipping-the-velvet_999/index.html",
			ImageURL:     "https://books.toscrape.com/media/cache/26/0c/260c6ae16bce31c8f8c95daddd9f4a1c.jpg",
			Category:     "Historical Fiction",
		},
		{
			Title:        "Soumission",
			Price:        "£50.10",
			Rating:       models.RatingOne,
			Availability: "In stock (20 available)",
			BookURL:      "https://books.toscrape.com/catalogue/soumission_998/index.html",
			ImageURL:     "https://books.toscrape.com/media/cache/3e/ef/3eef99c9d9adef34639f510662022830.jpg",
			Category:     "Fiction",
		},
	}
}

const previewRecords = 5

func printSummary(out io.Writer, result *models.ScrapeResult, metrics map[string]interface{}, writer *pipeline.MultiWriter, runErr error) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(out, "\n"+separator)
	if result.Partial() {
		fmt.Fprintln(out, "Scrape stopped early")
	} else {
		fmt.Fprintln(out, "Scrape complete")
	}

	fmt.Fprintf(out, "  Records:       %d\n", result.TotalCount())
	fmt.Fprintf(out, "  Pages:         %d\n", result.PageCount)
	fmt.Fprintf(out, "  Skipped:       %d\n", result.SkippedCount)
	fmt.Fprintf(out, "  Stop reason:   %s\n", result.StopReason)
	if result.FailedURL != "" {
		fmt.Fprintf(out, "  Failed URL:    %s\n", result.FailedURL)
	}
	if runErr != nil {
		fmt.Fprintf(out, "  Error:         %v\n", runErr)
	}
	if len(result.ErrorsByType) > 0 {
		fmt.Fprintf(out, "  Error types:   %v\n", result.ErrorsByType)
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Fprintf(out, "  Validation:    %v\n", valErrors)
	}
	fmt.Fprintf(out, "  Requests:      %d\n", result.RequestCount)
	fmt.Fprintf(out, "  Retries:       %d\n", result.RetryCount)
	fmt.Fprintf(out, "  Duration:      %v\n", result.Duration().Round(time.Millisecond))

	if avg, ok := averagePrice(result.Records); ok {
		fmt.Fprintf(out, "  Average price: %.2f\n", avg)
	}
	if breakdown := ratingBreakdown(result.Records); breakdown != "" {
		fmt.Fprintf(out, "  Ratings:       %s\n", breakdown)
	}
	if result.TotalCount() == 0 {
		fmt.Fprintln(out, "  Outputs:       none written (no records scraped)")
	} else {
		fmt.Fprintf(out, "  Outputs:       %s\n", writer.Path())
	}

	if len(result.Records) > 0 {
		fmt.Fprintln(out, "\nFirst records:")
		for i, r := range result.Records {
			if i == previewRecords {
				break
			}
			fmt.Fprintf(out, "  %d. %s - %s (%s)\n", i+1, r.Title, r.Price, r.Rating)
		}
	}
	fmt.Fprintln(out, separator)
}

func averagePrice(records []models.CatalogRecord) (float64, bool) {
	var total float64
	var n int
	for _, r := range records {
		amount, err := parser.PriceAmount(r.Price)
		if err != nil {
			continue
		}
		total += amount
		n++
	}
	if n == 0 {
		return 0, false
	}
	return total / float64(n), true
}

func ratingBreakdown(records []models.CatalogRecord) string {
	counts := make(map[int]int)
	for _, r := range records {
		counts[r.Rating.Stars()]++
	}

	var parts []string
	for stars := 1; stars <= len(models.Ratings); stars++ {
		if counts[stars] > 0 {
			parts = append(parts, fmt.Sprintf("%d★ %d", stars, counts[stars]))
		}
	}
	if counts[0] > 0 {
		parts = append(parts, fmt.Sprintf("%s %d", models.Unknown, counts[0]))
	}
	return strings.Join(parts, ", ")
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	if isTerminal(os.Stdout) {
		return slog.New(humanlog.NewHandler(os.Stdout, &humanlog.Options{Level: level}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
