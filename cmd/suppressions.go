package cmd

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loom-lang/loom-race-instrumentation/instrument"
	"github.com/loom-lang/loom-race-instrumentation/internal/race"
)

var suppressionsFile string

var suppressionsCmd = &cobra.Command{
	Use:   "suppressions",
	Short: "emit the runtime suppression table",
	Long:  "emit the kind:name suppression entries the race runtime needs alongside instrumented units",
	Args:  cobra.ExactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		Suppressions()
	},
}

func Suppressions() {
	entries := instrument.Suppressions()

	// Refuse to emit a table the runtime would reject.
	if _, err := race.NewSuppressor(entries); err != nil {
		log.Fatal(err)
	}

	text := strings.Join(entries, "\n") + "\n"
	if suppressionsFile == "" {
		os.Stdout.WriteString(text)
		return
	}
	if err := os.WriteFile(suppressionsFile, []byte(text), 0644); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", suppressionsFile)
}

func init() {
	suppressionsCmd.Flags().StringVar(&suppressionsFile, "output", "", "write the table to a file instead of stdout")

	rootCmd.AddCommand(suppressionsCmd)
}
