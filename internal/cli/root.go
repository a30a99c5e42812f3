// Package cli implements the flr command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/JonMunkholm/flr/internal/config"
	"github.com/JonMunkholm/flr/internal/core"
	"github.com/JonMunkholm/flr/internal/logging"
	"github.com/JonMunkholm/flr/internal/schema"
	"github.com/spf13/cobra"
)

// app holds the state shared by all subcommands. It is filled in by the
// root command's PersistentPreRunE.
type app struct {
	schemaDirs []string
	logLevel   string

	cfg     *config.Config
	catalog *schema.Catalog
}

// NewRootCmd creates the root command for flr.
func NewRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "flr",
		Short: "Read, validate and write fixed-length record files",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Show help when no subcommand is provided.
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringSliceVar(&a.schemaDirs, "schema-dir", nil, "directory of YAML schemas, repeatable")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	// Subcommands
	cmd.AddCommand(
		newParseCmd(a),
		newValidateCmd(a),
		newConvertCmd(a),
		newImportCmd(a),
		newSchemasCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command with provided args.
func Execute(ctx context.Context, args []string) error {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// load reads configuration, sets up logging and builds the schema catalog.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	logging.Setup(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	cfg.Parse.SchemaDirs = append(cfg.Parse.SchemaDirs, a.schemaDirs...)
	catalog, err := schema.Builtin()
	if err != nil {
		return err
	}
	for _, dir := range cfg.Parse.SchemaDirs {
		if err := catalog.LoadDir(dir); err != nil {
			return fmt.Errorf("load schemas from %s: %w", dir, err)
		}
	}
	slog.Debug("schemas loaded", "count", len(catalog.Names()), "dirs", cfg.Parse.SchemaDirs)

	a.cfg = cfg
	a.catalog = catalog
	return nil
}

// readFile resolves ref and reads the file at path with it.
func (a *app) readFile(ctx context.Context, ref, path string, opts ...core.Option) (*schema.Schema, *core.File, error) {
	sch, err := a.catalog.Resolve(ref)
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts, core.WithLogger(slog.With("schema", sch.Name, "file", path)))
	f, err := a.cfg.Parse.NewFile(sch, opts...)
	if err != nil {
		return sch, nil, err
	}
	return sch, f, f.ReadFile(ctx, path)
}

// ignoreUnique returns the --ignore-unique option when the flag was given.
func ignoreUnique(cmd *cobra.Command) []core.Option {
	if !cmd.Flags().Changed("ignore-unique") {
		return nil
	}
	v, _ := cmd.Flags().GetBool("ignore-unique")
	return []core.Option{core.WithIgnoreUniqueConstraint(v)}
}

func encodeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
