package main

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/covercalc/covercalc/internal/duckdb"
	"github.com/covercalc/covercalc/internal/report"
)

// resultsOptions selects what to read back from a results database.
type resultsOptions struct {
	DB     string
	RunID  string
	Sample string
	Group  string
}

func (a *app) newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Query results stored with run --db",
		Long: `Query coverage results stored in a DuckDB database by "covercalc run --db".

Without --sample or --group, lists the stored runs. With one of them, prints
that sample's (or group's) coverage rows for the run. With both, prints the
gap regions of that result as BED lines. The latest run is used unless
--run-id is given.`,
		Example: `  covercalc results --db results.duckdb
  covercalc results --db results.duckdb --sample S1
  covercalc results --db results.duckdb --group KRAS --run-id 5f0c...
  covercalc results --db results.duckdb --sample S1 --group KRAS`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := resultsOptionsFromViper(a.v, a.fs)
			if err != nil {
				return err
			}
			return showResults(opts, a.stdout)
		},
	}

	f := cmd.Flags()
	f.String("db", "", "DuckDB database written by run --db (required)")
	f.String("run-id", "", "run to query (default: latest)")
	f.String("sample", "", "show results of this sample")
	f.String("group", "", "show results of this group ('*' for all targets)")

	return cmd
}

// resultsOptionsFromViper resolves and validates results options. The
// database must already exist so that a typo never creates an empty one.
func resultsOptionsFromViper(v *viper.Viper, fs afero.Fs) (resultsOptions, error) {
	opts := resultsOptions{
		DB:     v.GetString("db"),
		RunID:  v.GetString("run-id"),
		Sample: v.GetString("sample"),
		Group:  v.GetString("group"),
	}
	if opts.DB == "" {
		return opts, &ConfigError{Field: "db", Message: "results database required"}
	}
	if _, err := fs.Stat(opts.DB); err != nil {
		return opts, &ConfigError{Field: "db", Message: err.Error()}
	}
	return opts, nil
}

func showResults(opts resultsOptions, w io.Writer) error {
	store, err := duckdb.Open(opts.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return fmt.Errorf("no runs stored in %s", store.Path())
	}

	if opts.Sample == "" && opts.Group == "" {
		rw := report.NewRunsWriter(w)
		if err := rw.WriteHeader(); err != nil {
			return err
		}
		if err := rw.Write(runs); err != nil {
			return err
		}
		return rw.Flush()
	}

	run, err := selectRun(runs, opts.RunID)
	if err != nil {
		return err
	}

	if opts.Sample != "" && opts.Group != "" {
		gaps, err := store.Gaps(run.ID, opts.Sample, opts.Group)
		if err != nil {
			return err
		}
		gw := report.NewGapWriter(w)
		if err := gw.Write(gaps); err != nil {
			return err
		}
		return gw.Flush()
	}

	var rows []duckdb.CoverageRow
	if opts.Sample != "" {
		rows, err = store.ResultsBySample(run.ID, opts.Sample)
	} else {
		rows, err = store.ResultsByGroup(run.ID, opts.Group)
	}
	if err != nil {
		return err
	}

	rw := report.NewResultsWriter(w)
	if err := rw.WriteHeader(); err != nil {
		return err
	}
	if err := rw.Write(rows); err != nil {
		return err
	}
	return rw.Flush()
}

// selectRun picks the run with the given ID, or the latest run when id is
// empty. runs is ordered oldest first.
func selectRun(runs []duckdb.Run, id string) (duckdb.Run, error) {
	if id == "" {
		return runs[len(runs)-1], nil
	}
	for _, r := range runs {
		if r.ID == id {
			return r, nil
		}
	}
	return duckdb.Run{}, &ConfigError{Field: "run-id", Message: fmt.Sprintf("no run %q stored", id)}
}
