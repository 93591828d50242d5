package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/starregistry/internal/inspector"
	"github.com/goodnatureofminers/starregistry/internal/ledger"
	"github.com/goodnatureofminers/starregistry/internal/logging"
	"github.com/goodnatureofminers/starregistry/internal/metrics"
	"github.com/goodnatureofminers/starregistry/internal/model"
	"github.com/goodnatureofminers/starregistry/internal/repository/clickhouse"
	"github.com/goodnatureofminers/starregistry/pkg/jsonx"
)

var config struct {
	ClickhouseDSN string `long:"clickhouse-dsn" env:"CHAIN_INSPECTOR_CLICKHOUSE_DSN" description:"ClickHouse DSN to load the chain from"`
	File          string `long:"file" env:"CHAIN_INSPECTOR_FILE" description:"chain exported by GET /chain/export, used instead of ClickHouse"`
	JSON          bool   `long:"json" description:"print the report as JSON"`
	Workers       int    `long:"workers" env:"CHAIN_INSPECTOR_WORKERS" description:"validation workers" default:"4"`
	Verbose       bool   `short:"v" long:"verbose" description:"log progress"`
}

func main() {
	if _, err := flags.Parse(&config); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		log.Fatalf("failed to parse flags: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := inspect(ctx)
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(2)
	}

	if config.JSON {
		enc := jsonx.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Fatalf("encode report: %v", err)
		}
	} else {
		render(report)
	}

	if !report.Healthy() {
		os.Exit(1)
	}
}

func inspect(ctx context.Context) (inspector.Report, error) {
	chain, source, err := load(ctx)
	if err != nil {
		return inspector.Report{}, err
	}
	return inspector.Scan(source, chain, ledger.NewValidator(config.Workers, 0), time.Now().UTC()), nil
}

func load(ctx context.Context) ([]model.Block, string, error) {
	switch {
	case config.File != "":
		chain, err := inspector.LoadFile(config.File)
		return chain, config.File, err
	case config.ClickhouseDSN != "":
		repo, err := clickhouse.NewRepository(config.ClickhouseDSN, metrics.NewClickhouseRepository())
		if err != nil {
			return nil, "", err
		}
		defer func() {
			_ = repo.Close()
		}()

		logger := zap.NewNop()
		if config.Verbose {
			if logger, err = logging.New(logging.Config{}); err != nil {
				return nil, "", err
			}
		}
		started := time.Now()
		chain, err := repo.Blocks(ctx)
		logger.Info("loaded chain from ClickHouse", zap.Int("blocks", len(chain)), zap.Duration("took", time.Since(started)), zap.Error(err))
		return chain, "clickhouse", err
	default:
		return nil, "", errors.New("either --file or --clickhouse-dsn is required")
	}
}

func render(r inspector.Report) {
	pterm.DefaultHeader.WithFullWidth().Println("Star Registry Chain Inspector")

	summary := pterm.TableData{
		{"Source", r.Source},
		{"Scanned at", r.ScanTime.Format(time.RFC3339)},
		{"Blocks", strconv.Itoa(r.Blocks)},
		{"Tip height", strconv.FormatUint(r.TipHeight, 10)},
		{"Star claims", strconv.Itoa(r.Claims)},
		{"Owners", strconv.Itoa(r.Owners)},
		{"Health score", fmt.Sprintf("%d%%", r.HealthScore)},
	}
	_ = pterm.DefaultTable.WithData(summary).Render()

	if len(r.Issues) > 0 {
		rows := pterm.TableData{{"Height", "Kind", "Detail"}}
		for _, issue := range r.Issues {
			rows = append(rows, []string{strconv.FormatUint(issue.Height, 10), string(issue.Kind), issue.Detail})
		}
		pterm.DefaultSection.Println("Integrity issues")
		_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()

		kinds := make([]string, 0, len(r.IssuesByKind))
		for kind := range r.IssuesByKind {
			kinds = append(kinds, string(kind))
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			pterm.Warning.Printfln("%s: %d", kind, r.IssuesByKind[ledger.IssueKind(kind)])
		}
	}
	if len(r.DuplicateHashes) > 0 {
		pterm.Warning.Printfln("duplicate hashes: %v", r.DuplicateHashes)
	}
	if len(r.UndecodableBodies) > 0 {
		pterm.Warning.Printfln("undecodable bodies at heights: %v", r.UndecodableBodies)
	}

	switch r.Status {
	case inspector.StatusHealthy:
		pterm.Success.Println("chain is valid")
	case inspector.StatusEmpty:
		pterm.Warning.Println("chain is empty")
	default:
		pterm.Error.Printfln("chain is corrupted (%d issues)", len(r.Issues))
	}
}
