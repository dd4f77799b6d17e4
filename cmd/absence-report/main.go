package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-absence-alerts/internal/models"
	"github.com/noah-isme/sma-absence-alerts/internal/service"
	"github.com/noah-isme/sma-absence-alerts/pkg/config"
	"github.com/noah-isme/sma-absence-alerts/pkg/export"
	"github.com/noah-isme/sma-absence-alerts/pkg/logger"
	"github.com/noah-isme/sma-absence-alerts/pkg/tabular"
)

type options struct {
	attendance string
	students   string
	out        string
	format     string
	minDays    int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	opts, err := parseFlags(os.Args[1:], cfg.Alerts.MinAbsentDays)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(context.Background(), opts, os.Stdout, logr); err != nil {
		logr.Fatal("absence report failed", zap.Error(err))
	}
}

func parseFlags(args []string, defaultMinDays int) (options, error) {
	var opts options
	fs := flag.NewFlagSet("absence-report", flag.ContinueOnError)
	fs.StringVar(&opts.attendance, "attendance", "", "Attendance table (csv or xlsx)")
	fs.StringVar(&opts.students, "students", "", "Student roster (csv or xlsx)")
	fs.StringVar(&opts.out, "out", "", "Output file (defaults to stdout)")
	fs.StringVar(&opts.format, "format", "", "Output format: csv, json, xlsx or pdf (defaults to the -out extension, else csv)")
	fs.IntVar(&opts.minDays, "min-days", defaultMinDays, "Streaks strictly longer than this are reported")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.attendance == "" || opts.students == "" {
		return options{}, errors.New("both -attendance and -students are required")
	}
	if opts.minDays <= 0 {
		return options{}, fmt.Errorf("-min-days must be positive, got %d", opts.minDays)
	}
	if opts.format == "" {
		opts.format = formatFromPath(opts.out)
	}
	opts.format = strings.ToLower(opts.format)
	switch opts.format {
	case "csv", "json", "xlsx", "pdf":
	default:
		return options{}, fmt.Errorf("unsupported format %q", opts.format)
	}
	return opts, nil
}

func formatFromPath(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		switch ext := strings.ToLower(path[i+1:]); ext {
		case "json", "xlsx", "pdf":
			return ext
		}
	}
	return "csv"
}

func run(ctx context.Context, opts options, stdout io.Writer, logr *zap.Logger) error {
	attendance, err := readTable(opts.attendance, "attendance")
	if err != nil {
		return err
	}
	roster, err := readTable(opts.students, "students")
	if err != nil {
		return err
	}

	alerts := service.NewAlertService(nil, nil, nil, nil, nil, logr, service.AlertServiceConfig{MinAbsentDays: opts.minDays})
	result, err := alerts.EvaluateTables(ctx, attendance, roster)
	if err != nil {
		return err
	}

	data, err := render(opts.format, result.Rows)
	if err != nil {
		return err
	}
	if opts.out == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(opts.out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.out, err)
	}
	logr.Info("absence report written",
		zap.String("path", opts.out),
		zap.String("format", opts.format),
		zap.Int("rows", len(result.Rows)))
	return nil
}

func readTable(path, name string) (tabular.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return tabular.Table{}, fmt.Errorf("open %s table: %w", name, err)
	}
	defer f.Close() //nolint:errcheck
	table, err := tabular.Read(path, f)
	if err != nil {
		return tabular.Table{}, err
	}
	table.Name = name
	return table, nil
}

func render(format string, rows []models.NotificationRow) ([]byte, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "xlsx":
		return export.NewXLSXExporter().Render(export.NotificationDataset(rows))
	case "pdf":
		return export.NewPDFExporter().Render(export.NotificationDataset(rows), "Absence Alerts")
	default:
		return export.NewCSVExporter().Render(export.NotificationDataset(rows))
	}
}
