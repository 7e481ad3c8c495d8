// Package main provides the operator CLI for document numbering.
// Usage: seqctl migrate
//
//	seqctl allocate --company <uuid> --branch <uuid> --type invoice --count 10 --parallel 4
//	seqctl preview --prefix INV- --padding 4 --reset --branch-prefix MUM
//	seqctl show --company <uuid> --branch <uuid> --type invoice
//	seqctl reset --company <uuid> --branch <uuid> --type invoice
//	seqctl save --company <uuid> --branch <uuid> --file edits.json
//	seqctl seed --company <uuid> --branch <uuid> --type invoice --last MUM-INV-0042/24-25
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	appctx "docnum/internal/core/context"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = appctx.WithTrace(ctx, appctx.NewTraceContext(ctx))
	ctx = appctx.WithOperator(ctx, &appctx.Operator{ID: os.Getenv("USER"), Source: "seqctl"})

	args := parseArgs(os.Args[2:])

	var err error
	switch os.Args[1] {
	case "migrate":
		err = runMigrate(ctx, args)
	case "allocate":
		err = runAllocate(ctx, args)
	case "preview":
		err = runPreview(ctx, args)
	case "show":
		err = runShow(ctx, args)
	case "reset":
		err = runReset(ctx, args)
	case "save":
		err = runSave(ctx, args)
	case "seed":
		err = runSeed(ctx, args)
	case "types":
		err = runTypes()
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		printError(err)
		stop()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Document Numbering CLI

Usage:
  seqctl <command> [options]

Commands:
  migrate   Apply the PostgreSQL schema (--down to roll back)
  allocate  Issue document numbers
  preview   Render a sample number for a configuration, without storage
  show      Show a sequence and its next number
  reset     Restart a sequence at 1
  save      Save a branch configuration from a JSON file
  seed      Continue a sequence after a number issued elsewhere
  types     List document types and their default prefixes
  help      Show this help

Global Options:
  --config <file>   Configuration file (default: ./seqctl.yaml, /etc/docnum/seqctl.yaml)

Environment Variables:
  DOCNUM_STORAGE_DRIVER   memory, postgres or redis (default: memory)
  DOCNUM_DATABASE_DSN     PostgreSQL connection string
  DOCNUM_REDIS_ADDR       Redis address (default: localhost:6379)
  DOCNUM_LOG_LEVEL        debug, info, warn, error

Examples:
  seqctl migrate
  seqctl allocate --company <uuid> --branch <uuid> --type invoice --date 2025-04-01
  seqctl allocate --company <uuid> --branch <uuid> --type receipt --count 100 --parallel 8
  seqctl preview --prefix INV- --padding 4 --reset --branch-prefix MUM --date 2025-06-01
  seqctl show --company <uuid> --branch <uuid> --type invoice
  seqctl save --company <uuid> --branch <uuid> --file edits.json
  seqctl seed --company <uuid> --branch <uuid> --type invoice --last MUM-INV-0042/24-25`)
}
