package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/loom-lang/loom-race-instrumentation/instrument"
	"github.com/loom-lang/loom-race-instrumentation/internal/race"
	"github.com/loom-lang/loom-race-instrumentation/internal/report"
	"github.com/loom-lang/loom-race-instrumentation/interp"
	"github.com/loom-lang/loom-race-instrumentation/mir"
)

var (
	runUnitPath   string
	schedulePath  string
	noInstrument  bool
	runDebug      bool
	noSuppression bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "instrument a unit and execute it under the reference race runtime",
	Long:  "instrument a MIR unit, interpret it against a thread schedule, and report the data races the hooks observed",
	Args:  cobra.ExactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		Run()
	},
}

func Run() {
	if runUnitPath == "" {
		log.Fatal("--path is required")
	}
	if schedulePath == "" {
		log.Fatal("--schedule is required")
	}

	unit, err := mir.ParseFile(runUnitPath)
	if err != nil {
		cobra.CheckErr(err)
	}

	if !noInstrument {
		cfg := instrument.Config{Debug: runDebug}
		if runDebug {
			cfg.Reporter = report.NewPrinter()
		}
		instrumented, stats, err := instrument.Unit(cfg, unit)
		if err != nil {
			cobra.CheckErr(err)
		}
		cfg.Reporter.Flush()
		if runDebug {
			log.Printf("%s: %s", runUnitPath, stats)
		}
		unit = instrumented
	}

	var sup *race.Suppressor
	if !noSuppression {
		sup, err = race.NewSuppressor(instrument.Suppressions())
		if err != nil {
			cobra.CheckErr(err)
		}
	}
	rt := race.NewRuntime(sup)

	machine, err := interp.New(unit, rt)
	if err != nil {
		cobra.CheckErr(err)
	}
	sched, err := interp.LoadSchedule(schedulePath)
	if err != nil {
		cobra.CheckErr(err)
	}
	if err := interp.Run(machine, sched); err != nil {
		cobra.CheckErr(fmt.Errorf("running %s: %v", schedulePath, err))
	}

	reports := rt.Reports()
	for _, r := range reports {
		log.Println(r)
	}
	if n := len(reports); n > 0 {
		log.Printf("found %d data race(s)", n)
		os.Exit(1)
	}
	log.Println("no data races found")
}

func init() {
	runCmd.Flags().StringVar(&runUnitPath, "path", "", "specify MIR unit file path")
	runCmd.Flags().StringVar(&schedulePath, "schedule", "", "specify thread schedule file path")
	runCmd.Flags().BoolVar(&noInstrument, "no-instrument", false, "execute the unit as written, without inserting hooks")
	runCmd.Flags().BoolVar(&noSuppression, "no-suppressions", false, "treat every lock as synchronization, including suppressed ones")
	runCmd.Flags().BoolVar(&runDebug, "debug", defaultDebug, "enable debugging output")

	rootCmd.AddCommand(runCmd)
}
