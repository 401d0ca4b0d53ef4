package cmd

import (
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "loom-race-instrumentation",
	Short: "loom-race-instrumentation adds race detector hook calls to Loom MIR units",
	Long:  "loom-race-instrumentation rewrites Loom MIR units so every plain memory access, atomic access, and function boundary calls into the race runtime",
	Run: func(cmd *cobra.Command, args []string) {
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
