// Package main is the entry point for the schema migration tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/utsavhq/vendormatch/internal/db"
	"github.com/utsavhq/vendormatch/internal/middleware"
	"github.com/utsavhq/vendormatch/migrations"
)

func main() {
	databaseURL := flag.String("database-url", os.Getenv("DATABASE_URL"),
		"PostgreSQL connection string (defaults to $DATABASE_URL)")
	timeout := flag.Duration("timeout", 5*time.Minute, "abort the run after this long")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		usage()
		os.Exit(0)
	}
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "migrate: DATABASE_URL is required")
		os.Exit(2)
	}

	logger := middleware.NewLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.Connect(ctx, *databaseURL, 0)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	switch cmd := flag.Arg(0); cmd {
	case "up":
		if err := migrations.Apply(ctx, pool); err != nil {
			logger.Error("migration failed", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations up to date")
	case "down":
		n := 1
		if flag.NArg() > 1 {
			parsed, err := strconv.Atoi(flag.Arg(1))
			if err != nil || parsed < 1 {
				fmt.Fprintf(os.Stderr, "migrate: down expects a positive count, got %q\n", flag.Arg(1))
				os.Exit(2)
			}
			n = parsed
		}
		if err := migrations.Rollback(ctx, pool, n); err != nil {
			logger.Error("rollback failed", "error", err)
			os.Exit(1)
		}
		logger.Info("rollback complete", "count", n)
	case "status":
		applied, err := migrations.Applied(ctx, pool)
		if err != nil {
			logger.Error("failed to list applied migrations", "error", err)
			os.Exit(1)
		}
		if len(applied) == 0 {
			fmt.Println("no migrations applied")
			return
		}
		for _, version := range applied {
			fmt.Println(version)
		}
	default:
		fmt.Fprintf(os.Stderr, "migrate: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("VendorMatch schema migration tool")
	fmt.Println()
	fmt.Println("Usage: migrate [options] <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up          apply all pending migrations")
	fmt.Println("  down [n]    roll back the n most recent migrations (default 1)")
	fmt.Println("  status      list applied migration versions")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
}
