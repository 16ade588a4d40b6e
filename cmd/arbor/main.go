package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/arborworkflows/arbor-apps/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.StringP("config", "c", "", "override arbor config path (optional)")
	prefsPath := flag.String("prefs", "", "override UI preferences path (optional)")
	tree := flag.StringP("tree", "t", "", "tree item id or Girder path to select at startup")
	table := flag.StringP("table", "b", "", "table item id or Girder path to select at startup")
	poll := flag.Duration("poll", 0, "job status poll interval (optional, defaults to config or 1s)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath:   *configPath,
		PrefsPath:    *prefsPath,
		Tree:         *tree,
		Table:        *table,
		PollInterval: *poll,
	}
	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "arbor: %v\n", err)
		return 1
	}
	return 0
}
