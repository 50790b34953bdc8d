package report

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/covercalc/covercalc/internal/coverage"
	"github.com/covercalc/covercalc/internal/target"
)

// Output file names.
const (
	GapSuffix      = "_Gaps.bed"
	PercentageFile = "PercentageCoverage.txt"
)

var errNoResult = errors.New("no coverage result for sample")

// GapFileName returns the gap file name for a sample.
func GapFileName(sample string) string {
	return sample + GapSuffix
}

// EmitError reports a failure to write one sample's gap file.
type EmitError struct {
	Sample string
	Path   string
	Err    error
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("write gaps for sample %s to %s: %v", e.Sample, e.Path, e.Err)
}

func (e *EmitError) Unwrap() error {
	return e.Err
}

// Emitter writes report files into a directory of an afero filesystem.
type Emitter struct {
	fs     afero.Fs
	dir    string
	logger *zap.Logger
}

// NewEmitter creates an emitter writing into dir on fs.
func NewEmitter(fs afero.Fs, dir string) *Emitter {
	return &Emitter{
		fs:     fs,
		dir:    dir,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for diagnostics.
func (e *Emitter) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Emit writes a gap file per sample, from the all-targets result, and the
// percentage table. A sample whose gap file fails yields an *EmitError and
// the remaining samples are still written. All failures are combined with
// multierr.
func (e *Emitter) Emit(summary *coverage.Summary) error {
	if err := e.fs.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var errs error
	for _, sample := range summary.Samples {
		if err := e.emitGaps(summary, sample); err != nil {
			e.logger.Error("failed to write gap file",
				zap.String("sample", sample),
				zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}

	if err := e.emitPercentages(summary); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("write percentage table: %w", err))
	}
	return errs
}

func (e *Emitter) emitGaps(summary *coverage.Summary, sample string) (err error) {
	path := filepath.Join(e.dir, GapFileName(sample))
	defer func() {
		if err != nil {
			err = &EmitError{Sample: sample, Path: path, Err: err}
		}
	}()

	r := summary.Get(sample, target.AllTargetsID)
	if r == nil {
		return errNoResult
	}

	f, err := e.fs.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	gw := NewGapWriter(f)
	if err := gw.Write(r.Gaps); err != nil {
		return err
	}
	if err := gw.Flush(); err != nil {
		return err
	}

	e.logger.Debug("wrote gap file",
		zap.String("sample", sample),
		zap.String("path", path),
		zap.Int("gaps", len(r.Gaps)))
	return nil
}

func (e *Emitter) emitPercentages(summary *coverage.Summary) (err error) {
	path := filepath.Join(e.dir, PercentageFile)
	f, err := e.fs.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	pw := NewPercentageWriter(f, summary.Groups)
	pw.SetLogger(e.logger)
	if err := pw.WriteHeader(); err != nil {
		return err
	}
	for _, sample := range summary.Samples {
		if err := pw.Write(summary, sample); err != nil {
			return err
		}
	}
	if err := pw.Flush(); err != nil {
		return err
	}

	e.logger.Info("wrote percentage table",
		zap.String("path", path),
		zap.Int("samples", len(summary.Samples)),
		zap.Int("groups", len(summary.Groups)))
	return nil
}
