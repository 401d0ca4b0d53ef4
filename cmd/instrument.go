package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	godiffpatch "github.com/sourcegraph/go-diff-patch"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/loom-lang/loom-race-instrumentation/instrument"
	"github.com/loom-lang/loom-race-instrumentation/internal/report"
	"github.com/loom-lang/loom-race-instrumentation/mir"
)

const (
	defaultDiffFileName = "loom-race-instrumentation.diff"
	defaultOutputDir    = ""
	defaultDiffFilePath = ""
	defaultDebug        = false
)

var (
	debug     bool
	unitPaths []string
	outputDir string
	diffFile  string
)

var instrumentCmd = &cobra.Command{
	Use:   "instrument",
	Short: "add instrumentation",
	Long:  "add race detector instrumentation to MIR unit files",
	Args:  cobra.ExactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		Instrument()
	},
}

// instrumentedUnit is the result of one unit rewrite, held until every
// unit has finished so output stays in input order.
type instrumentedUnit struct {
	path    string
	before  string
	after   string
	stats   instrument.Stats
	printer *report.Printer
}

// validateOutputFile checks that the custom diff path is valid
func validateOutputFile(path string) error {
	if filepath.Ext(path) != ".diff" {
		return errors.New("output file must have a .diff extension")
	}

	_, err := os.Stat(filepath.Dir(path))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("output file directory does not exist: %v", err)
	}

	return nil
}

// setOutputFilePath returns a complete diff file path based on the
// provided diffFile flag value. If the flag is empty, the default path
// will be based on the first unit's directory.
//
// This will fail if the unit paths are not valid, and must be run after
// validating them.
func setOutputFilePath(outputFilePath, firstUnitPath string) (string, error) {
	if outputFilePath == "" {
		outputFilePath = filepath.Join(filepath.Dir(firstUnitPath), defaultDiffFileName)
	}

	err := validateOutputFile(outputFilePath)
	if err != nil {
		return "", err
	}

	return outputFilePath, nil
}

// outputPath places the instrumented unit in the output directory when
// one is set, and next to the input otherwise.
func outputPath(unitPath string) string {
	base := strings.TrimSuffix(filepath.Base(unitPath), filepath.Ext(unitPath))
	name := base + ".instrumented.mir"
	if outputDir != "" {
		return filepath.Join(outputDir, name)
	}
	return filepath.Join(filepath.Dir(unitPath), name)
}

// instrumentOne reads, parses and rewrites a single unit file.
func instrumentOne(path string) (*instrumentedUnit, error) {
	unit, err := mir.ParseFile(path)
	if err != nil {
		return nil, err
	}
	before := mir.Print(unit)

	cfg := instrument.Config{Debug: debug}
	if debug {
		cfg.Reporter = report.NewPrinter()
	}
	out, stats, err := instrument.Unit(cfg, unit)
	if err != nil {
		return nil, err
	}

	return &instrumentedUnit{
		path:    path,
		before:  before,
		after:   mir.Print(out),
		stats:   stats,
		printer: cfg.Reporter,
	}, nil
}

func Instrument() {
	if len(unitPaths) == 0 {
		log.Fatal("--path is required")
	}

	for _, p := range unitPaths {
		if _, err := os.Stat(p); err != nil {
			cobra.CheckErr(fmt.Errorf("--path %q is invalid: %v", p, err))
		}
	}
	if outputDir != "" {
		if _, err := os.Stat(outputDir); err != nil {
			cobra.CheckErr(fmt.Errorf("--output %q is invalid: %v", outputDir, err))
		}
	}

	diffPath, err := setOutputFilePath(diffFile, unitPaths[0])
	if err != nil {
		cobra.CheckErr(err)
	}

	results := make([]*instrumentedUnit, len(unitPaths))
	var g errgroup.Group
	for i, p := range unitPaths {
		i, p := i, p
		g.Go(func() error {
			r, err := instrumentOne(p)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}

	var patches strings.Builder
	for _, r := range results {
		r.printer.Flush()
		log.Printf("%s: %s", r.path, r.stats)

		patches.WriteString(godiffpatch.GeneratePatch(r.path, r.before, r.after))

		if outputDir != "" {
			dest := outputPath(r.path)
			if err := os.WriteFile(dest, []byte(r.after), 0644); err != nil {
				log.Fatal(err)
			}
		}
	}

	if err := os.WriteFile(diffPath, []byte(patches.String()), 0644); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", diffPath)
}

func init() {
	instrumentCmd.Flags().BoolVar(&debug, "debug", defaultDebug, "enable debugging output")
	instrumentCmd.Flags().StringSliceVar(&unitPaths, "path", nil, "specify MIR unit file path, repeatable")
	instrumentCmd.Flags().StringVar(&outputDir, "output", defaultOutputDir, "directory for instrumented unit files")
	instrumentCmd.Flags().StringVar(&diffFile, "diff", defaultDiffFilePath, "specify diff output file path")
	cobra.MarkFlagFilename(instrumentCmd.Flags(), "diff", ".diff") // for file completion

	rootCmd.AddCommand(instrumentCmd)
}
