package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"docnum/internal/core/apperror"
	"docnum/internal/core/id"
	"docnum/internal/core/numerator"
)

// options are the --name value pairs of one command line. A flag followed by
// another flag (or by nothing) is a boolean switch.
type options map[string]string

func parseArgs(args []string) options {
	opts := make(options)
	for i := 0; i < len(args); i++ {
		name, ok := strings.CutPrefix(args[i], "--")
		if !ok {
			continue
		}
		if k, v, found := strings.Cut(name, "="); found {
			opts[k] = v
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			opts[name] = args[i+1]
			i++
			continue
		}
		opts[name] = "true"
	}
	return opts
}

func (o options) bool(name string) bool {
	v, err := strconv.ParseBool(o[name])
	return err == nil && v
}

func (o options) int(name string, def int) (int, error) {
	raw, ok := o[name]
	if !ok {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("--%s: %w", name, err)
	}
	return v, nil
}

// date parses --date as YYYY-MM-DD; today when absent.
func (o options) date() (time.Time, error) {
	raw, ok := o["date"]
	if !ok {
		return time.Now(), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("--date: %w", err)
	}
	return t, nil
}

// ids parses --company and --branch.
func (o options) ids() (id.ID, id.ID, error) {
	company, err := id.Parse(o["company"])
	if err != nil {
		return id.ID{}, id.ID{}, fmt.Errorf("--company: %w", err)
	}
	branch, err := id.Parse(o["branch"])
	if err != nil {
		return id.ID{}, id.ID{}, fmt.Errorf("--branch: %w", err)
	}
	return company, branch, nil
}

// key parses --company, --branch and --type.
func (o options) key() (numerator.Key, error) {
	company, branch, err := o.ids()
	if err != nil {
		return numerator.Key{}, err
	}
	if o["type"] == "" {
		return numerator.Key{}, fmt.Errorf("--type is required")
	}
	return numerator.Key{
		CompanyID:    company,
		BranchID:     branch,
		DocumentType: numerator.DocumentType(o["type"]),
	}, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printError writes err to stderr, with field errors one per line.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	for field, msg := range apperror.FieldErrors(err) {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", field, msg)
	}
}
