package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/JonMunkholm/flr/internal/cli"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	if err := cli.Execute(context.Background(), os.Args[1:]); err != nil {
		// Print a short, single-line error to stderr on failures.
		_, _ = os.Stderr.WriteString(cli.FormatError(err) + "\n")
		os.Exit(cli.ExitCode(err))
	}
}
