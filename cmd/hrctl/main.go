// Command hrctl is a terminal client for the HR dashboard: it signs in,
// keeps the session on disk and guards dashboard views.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hrdesk/hr-auth/internal/client/api"
	"github.com/hrdesk/hr-auth/internal/client/cli"
	"github.com/hrdesk/hr-auth/internal/client/session"
	"github.com/hrdesk/hr-auth/internal/client/storage/boltdb"
	"github.com/hrdesk/hr-auth/pkg/logger"
)

var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := cli.LoadConfig(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	versionFlag := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", cfg.Server, "Server URL")
	dbPath := flag.String("db", cfg.DB, "Session database path")
	flag.Usage = func() {
		cli.PrintUsage(os.Stderr)
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *versionFlag {
		printVersion()
		return
	}

	if err := run(ctx, cfg.LogLevel, *serverURL, *dbPath, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, level, serverURL, dbPath string, args []string) error {
	log := logger.Init(logger.Options{Level: level, Pretty: true, Output: os.Stderr, Service: "hrctl"})

	st, err := boltdb.New(ctx, dbPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("close session database")
		}
	}()

	client := api.NewClient(serverURL)
	store, err := session.New(ctx, client, st, session.WithLogger(logger.Component("session")))
	if err != nil {
		return err
	}

	err = cli.New(client, store, cli.NewStdPrompter(), os.Stdout).Run(ctx, args)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printVersion() {
	fmt.Printf("hrctl\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
