// Console is the command-line client of the environmental monitoring platform. Every subcommand
// maps to one screen of the web client and passes the same route guard before it runs.
//
//	console [-env-file .env] <command> [subcommand] [flags]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"envmonitor/console/internal/config"
	"envmonitor/console/internal/platform/api"
	"envmonitor/console/internal/policy/engine"
	"envmonitor/console/internal/telemetry"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("console", flag.ContinueOnError)
	fs.SetOutput(stderr)
	envFile := fs.String("env-file", "", "load environment variables from this file before reading config")
	fs.Usage = func() { usage(stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(stderr, "console: load %s: %v\n", *envFile, err)
			return 1
		}
	}

	cmd, rest, err := resolve(fs.Args())
	if err != nil {
		fmt.Fprintln(stderr, "console:", err)
		usage(stderr)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, stdout)
	if err != nil {
		fmt.Fprintln(stderr, "console:", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetry.ShutdownDrainDuration)
		defer cancel()
		app.Close(shutdownCtx)
	}()

	if err := app.Authorize(ctx, cmd.route); err != nil {
		var re *engine.RedirectError
		if errors.As(err, &re) {
			fmt.Fprintf(stderr, "console: %s requires another session (go to %s)\n", cmd.name, re.To)
			return 3
		}
		fmt.Fprintln(stderr, "console:", err)
		return 1
	}

	if err := cmd.run(ctx, app, rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintln(stderr, "console:", describe(err))
		return 1
	}
	return 0
}

// describe renders REST failures with their user-facing message.
func describe(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return err.Error()
}

// day is the date used in export file names.
var day = func() time.Time { return time.Now() }
