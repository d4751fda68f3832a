// Command biblespeak maintains the name pronunciation datasets: it scrapes
// the reference site, validates hand-authored entries and keeps both files
// in canonical order for the packaging build.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"

	"github.com/japaniel/biblespeak/pkg/config"
	"github.com/japaniel/biblespeak/pkg/dataset"
	"github.com/japaniel/biblespeak/pkg/db"
	"github.com/japaniel/biblespeak/pkg/logging"
	"github.com/japaniel/biblespeak/pkg/organize"
	"github.com/japaniel/biblespeak/pkg/scraper"
	"github.com/japaniel/biblespeak/pkg/validate"
)

const version = "0.1.0"

// errReported marks a failure whose details were already printed.
var errReported = errors.New("failure reported")

// Globals are the flags shared by every command.
type Globals struct {
	BaseURL    string        `name:"base-url" env:"BIBLESPEAK_BASE_URL" default:"${base_url}" help:"Reference site address"`
	Dir        string        `name:"dir" short:"C" env:"BIBLESPEAK_DIR" default:"." type:"path" help:"Directory holding the dataset files"`
	AutoFile   string        `name:"auto-file" env:"BIBLESPEAK_AUTO_FILE" default:"${auto_file}" help:"Scraped dataset file name"`
	ManualFile string        `name:"manual-file" env:"BIBLESPEAK_MANUAL_FILE" default:"${manual_file}" help:"Hand-authored dataset file name"`
	DB         string        `name:"db" env:"BIBLESPEAK_DB" type:"path" help:"SQLite run ledger (disabled when empty)"`
	Timeout    time.Duration `name:"timeout" env:"BIBLESPEAK_TIMEOUT" default:"0s" help:"HTTP client timeout (0 means none)"`
	UserAgent  string        `name:"user-agent" env:"BIBLESPEAK_USER_AGENT" default:"${user_agent}" help:"User-Agent sent to the reference site"`
	LogLevel   string        `name:"log-level" env:"BIBLESPEAK_LOG_LEVEL" default:"info" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat  string        `name:"log-format" env:"BIBLESPEAK_LOG_FORMAT" default:"text" enum:"text,json" help:"Log format"`

	Stdout io.Writer `kong:"-"`
	Stderr io.Writer `kong:"-"`
}

// Config builds the component configuration from the flags.
func (g *Globals) Config() config.Config {
	cfg := config.Default()
	cfg.BaseURL = g.BaseURL
	cfg.Dir = g.Dir
	cfg.AutoFile = g.AutoFile
	cfg.ManualFile = g.ManualFile
	cfg.DBPath = g.DB
	cfg.Timeout = g.Timeout
	cfg.UserAgent = g.UserAgent
	return cfg
}

// CLI defines the command-line interface.
type CLI struct {
	Globals `embed:""`

	Scrape   ScrapeCmd   `cmd:"" help:"Rebuild the auto dataset from the reference site"`
	Validate ValidateCmd `cmd:"" help:"Check the manual dataset for errors and style warnings"`
	Organize OrganizeCmd `cmd:"" help:"Sort both datasets and print entry counts"`
	History  HistoryCmd  `cmd:"" help:"Show recent runs from the ledger"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// ScrapeCmd regenerates the auto dataset.
type ScrapeCmd struct{}

func (c *ScrapeCmd) Run(g *Globals) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := g.Config()
	rec := g.startRun(db.ComponentScrape)

	s := scraper.New(cfg)
	logging.Info("scrape started", "base", s.Base, "letters", len(s.Letters), "output", s.OutputPath)
	res, err := s.Update(ctx)
	if err != nil {
		rec.finish(db.Outcome{Status: db.StatusFailed, Message: err.Error()})
		return err
	}

	rec.snapshot(db.DatasetAuto, res.Entries)
	rec.finish(db.Outcome{AutoCount: len(res.Entries), AutoDigest: res.Digest})
	fmt.Fprintf(g.Stdout, "Update complete. %d entries saved to %s\n", len(res.Entries), s.OutputPath)
	return nil
}

// ValidateCmd checks the manual dataset.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(g *Globals) error {
	cfg := g.Config()
	rec := g.startRun(db.ComponentValidate)

	report, err := validate.New(cfg).Validate()
	if err != nil {
		fmt.Fprintf(g.Stdout, "Validating %s...\n", cfg.ManualPath())
		fmt.Fprintf(g.Stdout, "[ERROR] %v\n", err)
		rec.finish(db.Outcome{Status: db.StatusFailed, ErrorCount: 1, Message: err.Error()})
		return errReported
	}

	report.Write(g.Stdout)
	outcome := db.Outcome{
		ManualCount:  report.Entries,
		ErrorCount:   len(report.Errors),
		WarningCount: len(report.Warnings),
	}
	if !report.OK() {
		outcome.Status = db.StatusFailed
		rec.finish(outcome)
		return errReported
	}
	rec.finish(outcome)
	return nil
}

// OrganizeCmd canonicalizes both datasets.
type OrganizeCmd struct{}

func (c *OrganizeCmd) Run(g *Globals) error {
	cfg := g.Config()
	rec := g.startRun(db.ComponentOrganize)

	fmt.Fprintln(g.Stdout, "Organizing pronunciation files...")
	counts, err := organize.New(cfg).Organize()
	if err != nil {
		var nf *dataset.NotFoundError
		var pe *dataset.ParseError
		switch {
		case errors.As(err, &nf):
			fmt.Fprintf(g.Stderr, "ERROR: File not found: %s\n", nf.Path)
		case errors.As(err, &pe):
			fmt.Fprintf(g.Stderr, "ERROR: Invalid JSON in %s: %v\n", pe.Path, pe)
		default:
			fmt.Fprintf(g.Stderr, "ERROR: Failed to process: %v\n", err)
		}
		rec.finish(db.Outcome{Status: db.StatusFailed, Message: err.Error()})
		return errReported
	}

	if rec != nil {
		for kind, path := range map[string]string{db.DatasetAuto: cfg.AutoPath(), db.DatasetManual: cfg.ManualPath()} {
			if f, err := dataset.Load(path); err == nil {
				rec.snapshot(kind, f.Fields.Entries())
			}
		}
	}
	rec.finish(db.Outcome{
		AutoCount:    counts.Auto,
		ManualCount:  counts.Manual,
		AutoDigest:   counts.AutoDigest,
		ManualDigest: counts.ManualDigest,
	})

	fmt.Fprintln(g.Stdout, counts.Summary())
	return nil
}

// HistoryCmd lists recent ledger runs.
type HistoryCmd struct {
	Limit int `name:"limit" short:"n" default:"10" help:"Number of runs to show"`
}

func (c *HistoryCmd) Run(g *Globals) error {
	if g.DB == "" {
		return errors.New("no ledger configured; pass --db or set BIBLESPEAK_DB")
	}
	conn, err := db.Open(g.DB)
	if err != nil {
		return err
	}
	defer conn.Close()

	runs, err := db.ListRuns(conn, c.Limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	tw := tabwriter.NewWriter(g.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tCOMPONENT\tSTATUS\tAUTO\tMANUAL\tERRORS\tWARNINGS\tID")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.StartedAt.Local().Format(time.DateTime), r.Component, r.Status,
			r.AutoCount, r.ManualCount, r.ErrorCount, r.WarningCount, r.ID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	auto, err := db.CountEntries(conn, db.DatasetAuto)
	if err != nil {
		return fmt.Errorf("count snapshot: %w", err)
	}
	manual, err := db.CountEntries(conn, db.DatasetManual)
	if err != nil {
		return fmt.Errorf("count snapshot: %w", err)
	}
	fmt.Fprintf(g.Stdout, "Snapshot: %d auto, %d manual entries\n", auto, manual)
	return nil
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	fmt.Fprintf(g.Stdout, "biblespeak %s\n", version)
	return nil
}

// runRecorder writes one run to the ledger. A nil recorder does nothing, and
// ledger failures never change a command's outcome.
type runRecorder struct {
	conn *sql.DB
	id   string
}

func (g *Globals) startRun(component string) *runRecorder {
	if g.DB == "" {
		return nil
	}
	conn, err := db.Open(g.DB)
	if err != nil {
		logging.Warn("ledger unavailable", "path", g.DB, "error", err)
		return nil
	}
	id, err := db.StartRun(conn, component)
	if err != nil {
		logging.Warn("could not record run", "error", err)
		conn.Close()
		return nil
	}
	logging.Debug("run started", "id", id, "component", component)
	return &runRecorder{conn: conn, id: id}
}

func (r *runRecorder) snapshot(kind string, entries map[string]dataset.Entry) {
	if r == nil {
		return
	}
	if _, err := db.SnapshotDataset(r.conn, kind, r.id, entries); err != nil {
		logging.Warn("could not snapshot dataset", "dataset", kind, "error", err)
	}
}

func (r *runRecorder) finish(o db.Outcome) {
	if r == nil {
		return
	}
	defer r.conn.Close()
	if err := db.FinishRun(r.conn, r.id, o); err != nil {
		logging.Warn("could not record run outcome", "id", r.id, "error", err)
	}
}

func newParser(cli *CLI, stdout, stderr io.Writer) (*kong.Kong, error) {
	return kong.New(cli,
		kong.Name("biblespeak"),
		kong.Description("BibleSpeak name pronunciation dataset tools"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Writers(stdout, stderr),
		kong.Vars{
			"base_url":    config.DefaultBaseURL,
			"auto_file":   config.DefaultAutoFile,
			"manual_file": config.DefaultManualFile,
			"user_agent":  config.DefaultUserAgent,
		},
	)
}

// run parses args, executes the selected command and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	var cli CLI
	parser, err := newParser(&cli, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "biblespeak: %v\n", err)
		return 1
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%v", err)
		return 1
	}

	level, err := logging.ParseLevel(cli.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "biblespeak: %v\n", err)
		return 1
	}
	format, err := logging.ParseFormat(cli.LogFormat)
	if err != nil {
		fmt.Fprintf(stderr, "biblespeak: %v\n", err)
		return 1
	}
	logging.InitLogger(level, format, stderr)

	cli.Stdout = stdout
	cli.Stderr = stderr
	if err := ctx.Run(&cli.Globals); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(stderr, "ERROR: %v\n", err)
		}
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
