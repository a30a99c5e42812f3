package cli

import (
	"context"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/flr/internal/report"
	"github.com/JonMunkholm/flr/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// openStore connects to DATABASE_URL and creates the store tables when
// DB_AUTO_MIGRATE is set. The caller closes the returned pool.
func (a *app) openStore(ctx context.Context) (*store.Store, *pgxpool.Pool, error) {
	db := a.cfg.Database
	pool, err := store.Connect(ctx, db.URL, store.PoolOptions{
		MaxConns:        db.MaxConns,
		MinConns:        db.MinConns,
		MaxConnLifetime: db.MaxConnLifetime,
		MaxConnIdleTime: db.MaxConnIdleTime,
	})
	if err != nil {
		return nil, nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(db.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	st := store.New(pool)
	if db.AutoMigrate {
		if err := st.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	return st, pool, nil
}

// importResult is printed by the import command.
type importResult struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Schema   string         `json:"schema"`
	Stacks   int            `json:"stacks"`
	Warnings []report.Issue `json:"warnings,omitempty"`
}

func newImportCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import <schema> <file>",
		Short: "Parse a file and store its records in PostgreSQL",
		Long: "Parse a file, run the write checks and store every record in PostgreSQL.\n\n" +
			"The database is taken from DATABASE_URL.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sch, f, err := a.readFile(ctx, args[0], args[1], ignoreUnique(cmd)...)
			if err != nil {
				return err
			}
			if err := f.Validate(); err != nil {
				return &exitErr{code: ExitInvalid, err: err}
			}

			st, pool, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if name == "" {
				name = filepath.Base(args[1])
			}
			id, err := st.SaveFile(ctx, name, sch.Name, f)
			if err != nil {
				return err
			}
			return encodeJSON(cmd.OutOrStdout(), importResult{
				ID:       id.String(),
				Name:     name,
				Schema:   sch.Name,
				Stacks:   f.Len(),
				Warnings: report.Issues(f.Warnings()),
			}, false)
		},
	}
	cmd.Flags().Bool("ignore-unique", false, ignoreUniqueUsage)
	cmd.Flags().StringVar(&name, "name", "", "name to store the file under (default: base name of <file>)")
	return cmd
}
