package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"docnum/internal/core/numerator"
	"docnum/internal/domain/numbering"
	"docnum/internal/infrastructure/config"
	"docnum/internal/infrastructure/storage/postgres"
)

func runMigrate(ctx context.Context, opts options) error {
	ctx, a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Storage.Driver != config.DriverPostgres {
		return fmt.Errorf("migrate requires the postgres driver, got %q", a.cfg.Storage.Driver)
	}

	m, err := postgres.NewMigrator(a.cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	if opts.bool("down") {
		return m.Down(ctx)
	}
	return m.Up(ctx)
}

func runAllocate(ctx context.Context, opts options) error {
	key, err := opts.key()
	if err != nil {
		return err
	}
	asOf, err := opts.date()
	if err != nil {
		return err
	}
	count, err := opts.int("count", 1)
	if err != nil {
		return err
	}
	parallel, err := opts.int("parallel", 1)
	if err != nil {
		return err
	}
	if count < 1 || parallel < 1 {
		return fmt.Errorf("--count and --parallel must be positive")
	}

	ctx, a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		mu     sync.Mutex
		issued = make([]*numbering.Allocation, 0, count)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i := 0; i < count; i++ {
		g.Go(func() error {
			alloc, err := a.alloc.Allocate(gctx, key, asOf)
			if err != nil {
				return err
			}
			mu.Lock()
			issued = append(issued, alloc)
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()

	// Print what was issued even on failure: those numbers are consumed.
	sort.Slice(issued, func(i, j int) bool { return issued[i].Counter < issued[j].Counter })
	for _, alloc := range issued {
		fmt.Println(alloc.Number)
	}
	if a.pool != nil && count > 1 {
		a.pool.LogStats(ctx)
	}
	return err
}

func runPreview(ctx context.Context, opts options) error {
	asOf, err := opts.date()
	if err != nil {
		return err
	}
	padding, err := opts.int("padding", numerator.DefaultPadding)
	if err != nil {
		return err
	}
	current, err := opts.int("current", 1)
	if err != nil {
		return err
	}

	cfg := numerator.Config{
		Prefix:              opts["prefix"],
		Suffix:              opts["suffix"],
		CurrentNumber:       int64(current),
		PaddingZeros:        padding,
		ResetYearly:         opts.bool("reset"),
		LastFiscalYearLabel: opts["label"],
	}

	// Preview never touches storage.
	admin := numbering.NewAdminService(nil, nil, numerator.StandardDefaults(), numbering.DefaultRetryConfig())
	number, err := admin.PreviewFormat(ctx, opts["branch-prefix"], cfg, asOf)
	if err != nil {
		return err
	}
	fmt.Println(number)
	return nil
}

func runShow(ctx context.Context, opts options) error {
	key, err := opts.key()
	if err != nil {
		return err
	}
	asOf, err := opts.date()
	if err != nil {
		return err
	}

	ctx, a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	desc, err := a.admin.Describe(ctx, key, asOf)
	if err != nil {
		return err
	}
	return printJSON(desc)
}

func runReset(ctx context.Context, opts options) error {
	key, err := opts.key()
	if err != nil {
		return err
	}

	ctx, a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.admin.ResetCounter(ctx, key); err != nil {
		return err
	}
	fmt.Printf("Sequence %s reset to 1\n", key)
	return nil
}

func runSave(ctx context.Context, opts options) error {
	company, branch, err := opts.ids()
	if err != nil {
		return err
	}
	if opts["file"] == "" {
		return fmt.Errorf("--file is required")
	}
	edits, err := readEdits(opts["file"])
	if err != nil {
		return err
	}

	ctx, a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.admin.SaveBranchConfiguration(ctx, company, branch, edits)
	if err != nil {
		return err
	}
	return printJSON(results)
}

// readEdits loads a JSON array of configuration edits.
func readEdits(path string) ([]numerator.ConfigEdit, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var edits []numerator.ConfigEdit
	if err := json.Unmarshal(raw, &edits); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return edits, nil
}

func runSeed(ctx context.Context, opts options) error {
	key, err := opts.key()
	if err != nil {
		return err
	}
	last := opts["last"]
	if last == "" {
		return fmt.Errorf("--last is required")
	}

	ctx, a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	next, err := a.admin.SeedFromLastIssued(ctx, key, last)
	if err != nil {
		return err
	}
	fmt.Printf("Sequence %s continues at %d\n", key, next)
	return nil
}

func runTypes() error {
	table := numerator.StandardDefaults()
	for _, dt := range table.Types() {
		d, _ := table.For(dt)
		fmt.Printf("%-18s %-6s padding %d\n", dt, d.Prefix, d.PaddingZeros)
	}
	return nil
}
