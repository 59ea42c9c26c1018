// Command prestoquery runs one statement against a Presto or Trino
// coordinator and prints the result.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	gp "github.com/snowflakedb/gopresto"
)

type runOptions struct {
	dsn           string
	connection    string
	format        string
	file          string
	metricsListen string
	logLevel      string
	timeout       time.Duration
}

var rootCmd = &cobra.Command{
	Use:           "prestoquery",
	Short:         "Run statements against a Presto or Trino coordinator",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [flags] [SQL]",
		Short: "Submit a statement and print its rows",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, err := statementText(opts, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), opts, sql, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.dsn, "dsn", os.Getenv("PRESTO_DSN"), "connection string, e.g. host=localhost;port=8080;user=me")
	f.StringVar(&opts.connection, "connection", "", "connection name in connections.toml, used when --dsn is empty")
	f.StringVar(&opts.format, "format", "table", "output format: csv, json or table")
	f.StringVarP(&opts.file, "file", "f", "", "read the statement from a file")
	f.StringVar(&opts.metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address, e.g. :9102")
	f.StringVar(&opts.logLevel, "log-level", "error", "log level: trace, debug, info, warn, error or off")
	f.DurationVar(&opts.timeout, "timeout", 0, "stop polling after this long, 0 waits for completion")
	return cmd
}

func statementText(opts *runOptions, args []string) (string, error) {
	switch {
	case opts.file != "" && len(args) > 0:
		return "", errors.New("pass either a statement or --file, not both")
	case opts.file != "":
		b, err := os.ReadFile(opts.file)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case len(args) == 1:
		return args[0], nil
	}
	return "", errors.New("no statement given")
}

func loadConfig(opts *runOptions) (*gp.Config, error) {
	if opts.dsn != "" {
		return gp.ParseDSN(opts.dsn)
	}
	return gp.LoadNamedConnectionConfig(opts.connection)
}

func run(ctx context.Context, opts *runOptions, sql string, out io.Writer) error {
	if err := gp.GetLogger().SetLogLevel(opts.logLevel); err != nil {
		return err
	}
	gp.GetLogger().SetOutput(os.Stderr)

	if opts.metricsListen != "" {
		stop, err := serveMetrics(opts.metricsListen)
		if err != nil {
			return err
		}
		defer stop()
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if opts.timeout > 0 {
		cfg.Timeout = opts.timeout
	}
	client, err := gp.NewClient(cfg)
	if err != nil {
		return err
	}
	res, err := client.Query(ctx, sql, nil)
	if err != nil {
		var qe *gp.QueryError
		if errors.As(err, &qe) && qe.ErrorLocation != nil {
			fmt.Fprintln(os.Stderr, caret(sql, qe.ErrorLocation))
		}
		return err
	}
	if res.Truncated() {
		fmt.Fprintf(os.Stderr, "warning: timeout reached, the result of %v is incomplete\n", res.QueryID)
	}
	return printResult(out, opts.format, res)
}

// caret points at the error location in the statement text.
func caret(sql string, loc *gp.ErrorLocation) string {
	lines := strings.Split(sql, "\n")
	if loc.LineNumber < 1 || loc.LineNumber > len(lines) {
		return ""
	}
	line := lines[loc.LineNumber-1]
	pad := loc.ColumnNumber - 1
	if pad < 0 {
		pad = 0
	}
	if pad > len(line) {
		pad = len(line)
	}
	return line + "\n" + strings.Repeat(" ", pad) + "^"
}

func printResult(out io.Writer, format string, res *gp.Result) error {
	switch format {
	case "csv":
		if len(res.Rows) == 0 {
			return nil
		}
		s, err := res.ToCSV()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, s)
		return err
	case "json":
		b, err := res.ToJSON()
		if err != nil {
			return err
		}
		if b == nil {
			b = []byte(`{"data":[]}`)
		}
		_, err = fmt.Fprintln(out, string(b))
		return err
	case "table":
		return printTable(out, res)
	}
	return fmt.Errorf("unknown format %q", format)
}

func printTable(out io.Writer, res *gp.Result) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if len(res.Columns) > 0 {
		fmt.Fprintln(w, strings.Join(res.ColumnNames(), "\t"))
	}
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v.IsNull() {
				cells[i] = "NULL"
				continue
			}
			cells[i] = v.String()
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if last := res.LastPage(); last != nil && last.UpdateType != "" {
		count := ""
		if last.UpdateCount != nil {
			count = fmt.Sprintf(": %d rows", *last.UpdateCount)
		}
		fmt.Fprintf(out, "%v%v\n", last.UpdateType, count)
	}
	return nil
}

func serveMetrics(addr string) (func(), error) {
	reg := prometheus.NewRegistry()
	if err := gp.RegisterMetrics(reg); err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.AddCommand(newRunCmd())
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
