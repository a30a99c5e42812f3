package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/JonMunkholm/flr/internal/core"
	"github.com/JonMunkholm/flr/internal/lineio"
	"github.com/JonMunkholm/flr/internal/report"
	"github.com/JonMunkholm/flr/internal/schema"
	"github.com/spf13/cobra"
)

const ignoreUniqueUsage = "log unique constraint violations as warnings instead of failing"

func newParseCmd(a *app) *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:   "parse <schema> <file>",
		Short: "Parse a file and print its stacks as JSON",
		Long: "Parse a file and print its stacks as JSON.\n\n" +
			"<schema> is the name of a loaded schema or the path of a YAML schema file.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sch, f, err := a.readFile(cmd.Context(), args[0], args[1], ignoreUnique(cmd)...)
			if err != nil {
				return err
			}
			return encodeJSON(cmd.OutOrStdout(), report.Build(sch.Name, f), pretty)
		},
	}
	cmd.Flags().Bool("ignore-unique", false, ignoreUniqueUsage)
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:   "validate <schema> <file>",
		Short: "Check that a file reads and would write back cleanly",
		Long: "Read a file and run the write checks over it, printing the result as JSON.\n\n" +
			"Exits with status 2 when the file is invalid.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sch, f, readErr := a.readFile(cmd.Context(), args[0], args[1], ignoreUnique(cmd)...)
			if f == nil || isRunError(readErr) {
				return readErr
			}

			v := report.Validate(sch.Name, f, readErr)
			if err := encodeJSON(cmd.OutOrStdout(), v, pretty); err != nil {
				return err
			}
			if v.Valid {
				return nil
			}
			cause := readErr
			if cause == nil {
				cause = f.Validate()
			}
			return &exitErr{code: ExitInvalid, err: cause}
		},
	}
	cmd.Flags().Bool("ignore-unique", false, ignoreUniqueUsage)
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	return cmd
}

// isRunError reports errors that stop validate before there is a result to
// print.
func isRunError(err error) bool {
	return errors.Is(err, core.ErrSourceMissing) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, lineio.ErrUnsupportedEncoding)
}

func newConvertCmd(a *app) *cobra.Command {
	var encoding, lineBreak string
	cmd := &cobra.Command{
		Use:   "convert <schema> <in> <out>",
		Short: "Read a file and write it back, optionally re-encoded",
		Long: "Read <in> and write its records to <out>.\n\n" +
			"--encoding and --line-break change the output; by default the input's\n" +
			"encoding and line break are kept. <out> must not exist.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sch, f, err := a.readFile(ctx, args[0], args[1], ignoreUnique(cmd)...)
			if err != nil {
				return err
			}

			if encoding != "" {
				if err := f.SetEncoding(encoding); err != nil {
					return err
				}
			}
			if lineBreak != "" {
				lb, err := schema.ParseLineBreak(lineBreak)
				if err != nil {
					return err
				}
				if err := f.SetLineBreak(lb); err != nil {
					return err
				}
			}

			if err := f.WriteFile(ctx, args[2]); err != nil {
				return err
			}
			slog.Info("file converted",
				"schema", sch.Name,
				"in", args[1],
				"out", args[2],
				"encoding", f.Encoding(),
				"stacks", f.Len(),
			)
			return nil
		},
	}
	cmd.Flags().Bool("ignore-unique", false, ignoreUniqueUsage)
	cmd.Flags().StringVar(&encoding, "encoding", "", "output encoding, e.g. UTF-8 or ISO-8859-1")
	cmd.Flags().StringVar(&lineBreak, "line-break", "", "output line break: lf, crlf or cr")
	return cmd
}

func newSchemasCmd(a *app) *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "List loaded schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := a.catalog.List()
			out := make([]schema.Summary, 0, len(list))
			for _, s := range list {
				out = append(out, s.Summary())
			}
			return encodeJSON(cmd.OutOrStdout(), out, pretty)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	return cmd
}
