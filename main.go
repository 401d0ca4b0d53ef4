package main

import (
	"log"

	"github.com/loom-lang/loom-race-instrumentation/cmd"
)

func main() {
	log.Default().SetFlags(0)
	cmd.Execute()
}
