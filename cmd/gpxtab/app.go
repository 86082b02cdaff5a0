package main

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"gpxtab/internal/config"
	"gpxtab/internal/eventlog"
	"gpxtab/internal/export"
	"gpxtab/internal/gpx"
	"gpxtab/internal/store"
	"gpxtab/internal/web"
)

var version = "dev"

func newApp(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "gpxtab",
		Usage:   "stream GPX 1.1 documents into tables, GeoJSON, OSM or GPX",
		Version: version,
		Writer:  stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to YAML config (defaults apply when empty)"},
			&cli.BoolFlag{Name: "strict", Usage: "require <gpx> as the document element"},
		},
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "parse GPX files into the SQLite store",
				ArgsUsage: "<file.gpx[.gz]>...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "db", Usage: "SQLite path (overrides store.path)"},
				},
				Action: runImport,
			},
			{
				Name:      "convert",
				Usage:     "convert a GPX file to geojson, osm or gpx",
				ArgsUsage: "<file.gpx[.gz]>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "geojson, osm or gpx (default from --output or config)"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output path, .gz compresses (default stdout)"},
				},
				Action: runConvert,
			},
			{
				Name:      "summary",
				Usage:     "print record counts, bounds and issues of GPX files",
				ArgsUsage: "<file.gpx[.gz]>...",
				Action:    runSummary,
			},
			{
				Name:      "record",
				Usage:     "parse a GPX file and record its XML event stream",
				ArgsUsage: "<file.gpx[.gz]> <events.log>",
				Action:    runRecord,
			},
			{
				Name:      "replay",
				Usage:     "replay recorded event streams through the parser",
				ArgsUsage: "<events.log>",
				Action:    runReplay,
			},
			{
				Name:  "serve",
				Usage: "run the HTTP import service",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "listen", Usage: "listen address (overrides web.listen)"},
					&cli.StringFlag{Name: "db", Usage: "SQLite path (overrides store.path)"},
				},
				Action: runServe,
			},
		},
	}
}

func loadConfig(cmd *cli.Command) (config.Config, error) {
	path := strings.TrimSpace(cmd.String("config"))
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

func parserOptions(cmd *cli.Command, cfg config.Config) []gpx.Option {
	opts := []gpx.Option{gpx.WithMaxDepth(cfg.Parser.MaxDepth)}
	if cfg.Parser.StrictRoot || cmd.Bool("strict") {
		opts = append(opts, gpx.WithStrictRoot())
	}
	return opts
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// openInput opens a GPX file, transparently gunzipping ".gz" paths.
func openInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(strings.ToLower(path), ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &gzipInput{Reader: zr, f: f}, nil
}

type gzipInput struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipInput) Close() error {
	err := g.Reader.Close()
	if cerr := g.f.Close(); err == nil {
		err = cerr
	}
	return err
}

func storePath(cmd *cli.Command, cfg config.Config) string {
	if db := strings.TrimSpace(cmd.String("db")); db != "" {
		return db
	}
	return cfg.Store.Path
}

func openStore(ctx context.Context, cmd *cli.Command, cfg config.Config) (*store.Store, error) {
	return store.Open(ctx, storePath(cmd, cfg), store.Options{TablePrefix: cfg.Store.TablePrefix, BusyTimeout: cfg.Store.BusyTimeout})
}

func requireArgs(cmd *cli.Command, n int) error {
	if cmd.NArg() < n {
		return fmt.Errorf("%s: expected %s", cmd.Name, cmd.ArgsUsage)
	}
	return nil
}

func runImport(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, err := openStore(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	out := stdout(cmd)
	opts := parserOptions(cmd, cfg)
	failed := 0
	for _, path := range cmd.Args().Slice() {
		sum, err := importFile(ctx, s, path, opts)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s: FAILED: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "%s: document %d (%s): %d waypoints, %d routes, %d tracks, %d points, %d issues\n",
			path, sum.DocumentID, sum.ImportID, sum.Counts.Waypoints, sum.Counts.Routes, sum.Counts.Tracks, sum.Counts.Points, len(sum.Issues))
		sum.Issues.LogAll(path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, cmd.NArg())
	}
	return nil
}

func importFile(ctx context.Context, s *store.Store, path string, opts []gpx.Option) (store.Summary, error) {
	in, err := openInput(path)
	if err != nil {
		return store.Summary{}, err
	}
	defer in.Close()
	return s.Import(ctx, path, in, opts...)
}

func parseFile(ctx context.Context, path string, sink gpx.Sink, opts []gpx.Option) (*gpx.Result, error) {
	in, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return gpx.ParseReader(ctx, in, sink, opts...)
}

func runConvert(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	output := strings.TrimSpace(cmd.String("output"))
	format, err := convertFormat(cmd.String("format"), output, cfg.Export.DefaultFormat)
	if err != nil {
		return err
	}

	src := cmd.Args().First()
	var c gpx.Collector
	res, err := parseFile(ctx, src, &c, parserOptions(cmd, cfg))
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	res.Issues.LogAll(src)

	opts := export.Options{Indent: cfg.Export.Indent, Creator: "gpxtab " + version}
	if output == "" {
		w := stdout(cmd)
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			opts.Indent = true
		}
		return export.Write(w, format, &c, opts)
	}

	w, err := export.Create(output)
	if err != nil {
		return err
	}
	if err := export.Write(w, format, &c, opts); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	log.Printf("wrote %s (%s): %d records", output, format, c.Len())
	return nil
}

// convertFormat picks the explicit format, else the output extension, else
// the configured default.
func convertFormat(flag, output, def string) (export.Format, error) {
	if flag = strings.TrimSpace(flag); flag != "" {
		return export.ParseFormat(flag)
	}
	if output != "" {
		if f, ok := export.FormatForPath(output); ok {
			return f, nil
		}
	}
	return export.ParseFormat(def)
}

func runSummary(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := stdout(cmd)
	for _, path := range cmd.Args().Slice() {
		var c gpx.Collector
		res, err := parseFile(ctx, path, &c, parserOptions(cmd, cfg))
		if err != nil && res == nil {
			return err
		}
		printDocSummary(out, path, summarizeDocument(&c, res.Issues), err)
	}
	return nil
}

func runRecord(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 2); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	src, dst := cmd.Args().Get(0), cmd.Args().Get(1)

	in, err := openInput(src)
	if err != nil {
		return err
	}
	defer in.Close()

	w, err := eventlog.CreateWriter(dst)
	if err != nil {
		return err
	}
	sum, perr, err := recordDocument(ctx, in, src, w, parserOptions(cmd, cfg))
	if ferr := w.Finish(); err == nil {
		err = ferr
	}
	if err != nil {
		return fmt.Errorf("%s: %w", dst, err)
	}
	// A document that fails to parse is still worth keeping as a log.
	printDocSummary(stdout(cmd), src, sum, perr)
	log.Printf("recorded %s to %s", src, dst)
	return nil
}

// recordDocument parses in while writing its event stream to w. Parse
// failures come back as parseErr; err is reserved for the log itself.
func recordDocument(ctx context.Context, in io.Reader, src string, w *eventlog.Writer, opts []gpx.Option) (sum docSummary, parseErr error, err error) {
	if err := w.Comment("source: " + src); err != nil {
		return docSummary{}, nil, err
	}
	var c gpx.Collector
	p := gpx.NewParser(&c, opts...)
	parseErr = gpx.Decode(ctx, in, eventlog.Tee{Log: w, Next: p})
	if parseErr == nil {
		parseErr = p.Finish()
	}
	return summarizeDocument(&c, p.Issues()), parseErr, nil
}

func runReplay(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	path := cmd.Args().First()
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	docs, err := eventlog.NewReader(f).ReadAll()
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return errors.New("no documents in event log")
	}

	out := stdout(cmd)
	fmt.Fprintf(out, "path: %s\n", path)
	fmt.Fprintf(out, "documents: %d\n", len(docs))
	var c gpx.Collector
	for _, r := range eventlog.Replay(docs, &c, parserOptions(cmd, cfg)...) {
		state := "ok"
		if r.Err != nil {
			state = r.Err.Error()
		}
		fmt.Fprintf(out, "  [%d] events=%d waypoints=%d routes=%d tracks=%d points=%d issues=%d: %s\n",
			r.Index, len(docs[r.Index].Events), r.Counts.Waypoints, r.Counts.Routes, r.Counts.Tracks, r.Counts.Points, len(r.Issues), state)
	}
	return nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logs := web.NewLogBuffer(cfg.Web.LogLines)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))

	s, err := openStore(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	listen := cfg.Web.Listen
	if l := strings.TrimSpace(cmd.String("listen")); l != "" {
		listen = l
	}

	status := web.NewStatus()
	status.SetStorePath(storePath(cmd, cfg))
	log.Printf("gpxtab %s listening on %s", version, listen)

	err = web.Serve(ctx, listen, status, s, logs, web.Options{
		MaxUploadBytes: cfg.Web.MaxUploadBytes,
		Parser:         parserOptions(cmd, cfg),
	})
	if errors.Is(err, context.Canceled) {
		log.Printf("gpxtab stopping")
		return nil
	}
	return err
}
