package main

import (
	"fmt"
	"os"

	"github.com/tkorpela/terraseries/cmd"
	"github.com/tkorpela/terraseries/internal/buildinfo"
	"github.com/tkorpela/terraseries/internal/conf"
	"github.com/tkorpela/terraseries/internal/logging"
)

// Set at link time via -ldflags.
var (
	version   string
	buildDate string
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		return 1
	}

	build := &buildinfo.Context{Version: version, BuildDate: buildDate}
	rootCmd := cmd.RootCommand(settings, build)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "command error: %v\n", err)
		return 1
	}
	return 0
}
