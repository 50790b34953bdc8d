package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/covercalc/covercalc/internal/coverage"
	"github.com/covercalc/covercalc/internal/depth"
	"github.com/covercalc/covercalc/internal/duckdb"
	"github.com/covercalc/covercalc/internal/fileio"
	"github.com/covercalc/covercalc/internal/report"
	"github.com/covercalc/covercalc/internal/target"
)

// Defaults for run parameters.
const (
	DefaultPadding  = 5
	DefaultMinDepth = 20
)

// ConfigError reports a missing or invalid input or parameter.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// runOptions holds the resolved parameters of a coverage run.
type runOptions struct {
	Targets      string
	TargetFormat string
	Regions      string
	Groups       []string
	GroupsFile   string
	FeatureType  string
	GroupBy      string
	Depth        string
	DepthFormat  string
	Padding      int
	MinDepth     int
	Output       string
	Workers      int
	DB           string
}

func (a *app) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute coverage and gaps for every sample",
		Long: `Compute per-sample coverage of target regions.

Writes <sample>_Gaps.bed for every sample (gaps over all targets) and
PercentageCoverage.txt (one row per sample, one column per group) into the
output directory. With --db, results are also stored in a DuckDB database.`,
		Example: `  covercalc run --targets genes.gtf.gz --depth sample.depth.txt
  covercalc run --targets panel.bed --depth cohort.g.vcf.gz --min-depth 30 -o results
  covercalc run --targets gencode.gtf --groups KRAS,TP53 --regions exome.bed --depth depth.txt`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := optionsFromViper(a.v)
			if err != nil {
				return err
			}
			return runCoverage(cmd.Context(), opts, a.logger, a.fs)
		},
	}

	f := cmd.Flags()
	f.StringP("targets", "t", "", "target annotation file: BED, GTF or GFF3, optionally gzipped (required)")
	f.String("target-format", "", "target format: bed, gtf, gff3 (detected from extension if not specified)")
	f.String("regions", "", "BED file of regions of interest; only overlapping features are kept")
	f.StringSlice("groups", nil, "restrict to these group IDs (gene names, transcript IDs)")
	f.String("groups-file", "", "file listing group IDs, one per line (first column)")
	f.String("feature-type", "exon", "GTF/GFF3 feature type to keep (empty keeps all)")
	f.String("group-by", "", "GTF/GFF3 attribute used as group ID (default gene_name for GTF)")
	f.StringP("depth", "d", "", "depth table or VCF/gVCF, optionally gzipped; '-' for stdin (required)")
	f.String("depth-format", "", "depth format: table or vcf (detected from extension if not specified)")
	f.IntP("padding", "p", DefaultPadding, "bases added to both sides of every feature")
	f.IntP("min-depth", "m", DefaultMinDepth, "minimum depth (or genotype quality for VCF) for a base to pass")
	f.StringP("output", "o", ".", "output directory")
	f.Int("workers", 0, "evaluation workers (default: number of CPUs)")
	f.String("db", "", "DuckDB database to store results in")

	return cmd
}

// optionsFromViper resolves and validates run options.
func optionsFromViper(v *viper.Viper) (runOptions, error) {
	opts := runOptions{
		Targets:      v.GetString("targets"),
		TargetFormat: v.GetString("target-format"),
		Regions:      v.GetString("regions"),
		Groups:       splitList(v.GetStringSlice("groups")),
		GroupsFile:   v.GetString("groups-file"),
		FeatureType:  v.GetString("feature-type"),
		GroupBy:      v.GetString("group-by"),
		Depth:        v.GetString("depth"),
		DepthFormat:  v.GetString("depth-format"),
		Padding:      v.GetInt("padding"),
		MinDepth:     v.GetInt("min-depth"),
		Output:       v.GetString("output"),
		Workers:      v.GetInt("workers"),
		DB:           v.GetString("db"),
	}
	if opts.TargetFormat == "" {
		opts.TargetFormat = detectTargetFormat(opts.Targets)
	}
	if opts.DepthFormat == "" {
		opts.DepthFormat = detectDepthFormat(opts.Depth)
	}
	return opts, opts.validate()
}

func (o runOptions) validate() error {
	switch {
	case o.Targets == "":
		return &ConfigError{Field: "targets", Message: "target annotation file required"}
	case o.Depth == "":
		return &ConfigError{Field: "depth", Message: "depth file required"}
	case o.Padding < 0:
		return &ConfigError{Field: "padding", Message: fmt.Sprintf("must be >= 0, got %d", o.Padding)}
	case o.MinDepth < 0:
		return &ConfigError{Field: "min-depth", Message: fmt.Sprintf("must be >= 0, got %d", o.MinDepth)}
	case o.Workers < 0:
		return &ConfigError{Field: "workers", Message: fmt.Sprintf("must be >= 0, got %d", o.Workers)}
	case o.Output == "":
		return &ConfigError{Field: "output", Message: "output directory required"}
	}
	if _, err := target.ParseFormat(o.TargetFormat); err != nil {
		return &ConfigError{Field: "target-format", Message: err.Error()}
	}
	if _, err := depth.ParseFormat(o.DepthFormat); err != nil {
		return &ConfigError{Field: "depth-format", Message: err.Error()}
	}
	for _, path := range []string{o.Targets, o.Regions, o.GroupsFile, o.Depth} {
		if path == "" || path == "-" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return &ConfigError{Field: "input", Message: err.Error()}
		}
	}
	return nil
}

// splitList flattens comma-separated entries, as given in COVERCALC_GROUPS
// or the config file.
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, s := range strings.Split(item, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// trimCompression lower-cases a path and drops a trailing .gz.
func trimCompression(path string) string {
	return strings.TrimSuffix(strings.ToLower(path), ".gz")
}

// detectTargetFormat detects the annotation format from the file extension.
func detectTargetFormat(path string) string {
	switch filepath.Ext(trimCompression(path)) {
	case ".gtf", ".gff2":
		return string(target.FormatGTF)
	case ".gff3", ".gff":
		return string(target.FormatGFF3)
	}
	return string(target.FormatBED)
}

// detectDepthFormat detects the depth input format from the file extension.
// Anything that is not a VCF is read as a depth table.
func detectDepthFormat(path string) string {
	if filepath.Ext(trimCompression(path)) == ".vcf" {
		return string(depth.FormatVCF)
	}
	return string(depth.FormatTable)
}

// runCoverage builds the catalog and pass sets concurrently, evaluates every
// (sample, group) pair and writes the reports.
func runCoverage(ctx context.Context, opts runOptions, logger *zap.Logger, fs afero.Fs) error {
	var (
		catalog  *target.Catalog
		passSets *depth.PassSets
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		catalog, err = loadCatalog(gctx, opts, logger.Named("target"))
		return err
	})
	g.Go(func() error {
		var err error
		passSets, err = classifyDepth(gctx, opts, logger.Named("depth"))
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	ev := coverage.NewEvaluator()
	ev.SetWorkers(opts.Workers)
	ev.SetLogger(logger.Named("coverage"))
	summary, err := ev.EvaluateAll(ctx, catalog, passSets)
	if err != nil {
		return err
	}

	em := report.NewEmitter(fs, opts.Output)
	em.SetLogger(logger.Named("report"))
	errs := em.Emit(summary)

	if opts.DB != "" {
		if err := storeResults(opts, summary, logger); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func loadCatalog(ctx context.Context, opts runOptions, logger *zap.Logger) (*target.Catalog, error) {
	format, err := target.ParseFormat(opts.TargetFormat)
	if err != nil {
		return nil, err
	}

	groups := opts.Groups
	if opts.GroupsFile != "" {
		ids, err := target.ReadGroupList(opts.GroupsFile)
		if err != nil {
			return nil, err
		}
		groups = append(slices.Clip(groups), ids...)
	}

	b := target.NewBuilder(opts.Padding)
	b.SetLogger(logger)
	b.SetRequested(groups)

	if opts.Regions != "" {
		regions, err := target.ReadRegions(opts.Regions)
		if err != nil {
			return nil, fmt.Errorf("read regions: %w", err)
		}
		ix, err := target.NewRegionIndex(regions)
		if err != nil {
			return nil, fmt.Errorf("index regions: %w", err)
		}
		b.SetRegions(ix)
		logger.Debug("loaded regions of interest", zap.Int("regions", ix.Len()))
	}

	r, err := target.OpenFeatureReader(format, opts.Targets, target.GTFOptions{
		FeatureType: opts.FeatureType,
		GroupBy:     opts.GroupBy,
	})
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if err := b.Load(ctx, r); err != nil {
		return nil, fmt.Errorf("load targets: %w", err)
	}
	return b.Build(), nil
}

func classifyDepth(ctx context.Context, opts runOptions, logger *zap.Logger) (*depth.PassSets, error) {
	format, err := depth.ParseFormat(opts.DepthFormat)
	if err != nil {
		return nil, err
	}

	r, err := fileio.Open(opts.Depth)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	c, err := depth.NewClassifier(format, r, logger)
	if err != nil {
		return nil, err
	}
	ps, err := c.Classify(ctx, opts.MinDepth)
	if err != nil {
		return nil, fmt.Errorf("classify depth: %w", err)
	}
	return ps, nil
}

func storeResults(opts runOptions, summary *coverage.Summary, logger *zap.Logger) error {
	store, err := duckdb.Open(opts.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	run := duckdb.NewRun(opts.MinDepth, opts.Padding,
		duckdb.Fingerprint(opts.Targets), duckdb.Fingerprint(opts.Depth))
	if err := store.Record(run, summary); err != nil {
		return err
	}

	logger.Info("stored results",
		zap.String("db", store.Path()),
		zap.String("run_id", run.ID),
		zap.Int("results", len(summary.Results)))
	return nil
}
