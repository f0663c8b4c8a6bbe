package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/obsedit/obsedit/internal/errors"
	"github.com/obsedit/obsedit/internal/script"
	"github.com/obsedit/obsedit/internal/session"
	"github.com/obsedit/obsedit/internal/snapshot"
)

func replayCmd(flags *globalFlags) *cobra.Command {
	var (
		snapshotTarget string
		asJSON         bool
	)

	cmd := &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Replay an editor script and print the change trace",
		Long: `Replay a YAML script of editor operations.

The script's text seeds the editor (falling back to the config's text).
After each step the entries the change trace logged are printed under
the step's name. Steps with an expect list fail the replay on mismatch.

Examples:
  obsedit replay demo.yaml
  obsedit replay demo.yaml --json
  obsedit replay demo.yaml --snapshot file:///tmp/demo.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), flags, args[0], snapshotTarget, asJSON)
		},
	}

	cmd.Flags().StringVar(&snapshotTarget, "snapshot", "", "Save the final state to a file:// or s3:// target")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

func runReplay(ctx context.Context, out, errOut io.Writer, flags *globalFlags, path, snapshotTarget string, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	logger := newLogger(errOut, cfg)

	sc, err := script.Load(path)
	if err != nil {
		return err
	}
	text := sc.Text
	if text == "" {
		text = cfg.Text
	}

	sess := session.New(text, session.WithLogger(logger))
	defer sess.Close()

	res, runErr := script.Run(ctx, sc, sess)
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printResult(out, res)
	}
	if runErr != nil {
		return runErr
	}

	if snapshotTarget == "" {
		snapshotTarget = cfg.Snapshot.Target
	}
	if snapshotTarget != "" {
		store, err := snapshot.Open(snapshotTarget, snapshot.Options{
			Region:   cfg.Snapshot.Region,
			Endpoint: cfg.Snapshot.Endpoint,
		})
		if err != nil {
			return err
		}
		if err := store.Save(ctx, sess.Snapshot(res.Entries())); err != nil {
			return errors.FromError(err, "E301")
		}
		if !asJSON {
			success(out, "snapshot saved to %s", store.Target())
		}
	}
	return nil
}

func printResult(w io.Writer, res *script.Result) {
	fmt.Fprintln(w, "# initial")
	for _, e := range res.Initial {
		fmt.Fprintln(w, e)
	}
	for _, st := range res.Steps {
		fmt.Fprintf(w, "# %d %s\n", st.Index, st.Label)
		for _, e := range st.Entries {
			fmt.Fprintln(w, e)
		}
	}
}
