// The Main function of Cadenza. It sets everything up, creates the library
// and runs the scan and analysis pipeline over it.
//
// It is in package src because it is imported from the project's root
// folder.
package src

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/spisarov/cadenza/src/analyze"
	"github.com/spisarov/cadenza/src/config"
	"github.com/spisarov/cadenza/src/helpers"
	"github.com/spisarov/cadenza/src/library"
	"github.com/spisarov/cadenza/src/version"
)

var (
	showVersion = flag.Bool("v", false,
		"Print the program version and exit.")

	scanOnly = flag.Bool("scan-only", false,
		"Scan the libraries and exit without waiting for the analysis.")

	noWatch = flag.Bool("no-watch", false,
		"Exit once the scan and the analysis are done instead of watching "+
			"the library directories for changes.")
)

// pidFileName is the name of the pid file within the user path.
const pidFileName = "cadenza.pid"

// Main is the only thing run in the project's root main.go file. For all
// intents and purposes this is the main function.
func Main() {
	flag.Parse()

	if *showVersion {
		version.Print(os.Stdout)
		return
	}

	userPath, err := helpers.ProjectUserPath()
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}

	cfg, err := config.FindAndParse(userPath)
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}

	appfs := afero.NewOsFs()

	if cfg.LogFile != "" {
		logFile := helpers.AbsolutePath(cfg.LogFile, cfg.UserPath)
		if err := helpers.SetLogsFile(appfs, logFile); err != nil {
			log.Println(err)
			os.Exit(1)
		}
	}

	pidFile := filepath.Join(cfg.UserPath, pidFileName)
	if err := helpers.SetUpPidFile(appfs, pidFile); err != nil {
		log.Println(err)
	} else {
		defer helpers.RemovePidFile(appfs, pidFile)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPath := helpers.AbsolutePath(cfg.SqliteDatabase, cfg.UserPath)
	lib, err := library.NewLocalLibrary(ctx, dbPath)
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
	defer lib.Close()

	if err := lib.Initialize(); err != nil {
		log.Printf("Initializing library: %s", err)
		os.Exit(1)
	}

	var (
		queue *analyze.Queue
		cache *analyze.Cache
	)
	if !cfg.Analysis.Disabled {
		cachePath := helpers.AbsolutePath(cfg.Analysis.CacheFile, cfg.UserPath)
		cache = analyze.NewCache(appfs, cachePath)

		queue = analyze.NewQueue(
			ctx,
			analyze.QueueConfig{
				Concurrency:      cfg.Analysis.Concurrency,
				TempoTimeout:     time.Duration(cfg.Analysis.TempoTimeoutSec) * time.Second,
				PitchTimeout:     time.Duration(cfg.Analysis.PitchTimeoutSec) * time.Second,
				AcceptConfidence: cfg.Analysis.MinConfidence,
			},
			appfs,
			cache,
			&analyze.ToolRunner{Binary: cfg.Analysis.Tool},
			&analyze.TagWriter{},
		)
		lib.SetAnalysisQueue(queue)
	}

	if len(cfg.Libraries) == 0 {
		log.Printf("No library paths configured. Add some to %s.",
			filepath.Join(cfg.UserPath, config.ConfigName))
	}
	for _, path := range cfg.Libraries {
		lib.AddLibraryPath(path)
	}

	watching := !*noWatch && !*scanOnly
	if watching {
		lib.StartWatching()
	}

	lib.Scan()
	lib.WaitScan()

	if queue != nil && !*scanOnly {
		if err := queue.Idle(ctx); err != nil {
			log.Printf("Interrupted while waiting for the analysis: %s", err)
		}
	}
	if cache != nil {
		if err := cache.Flush(); err != nil {
			log.Printf("Error flushing analysis cache: %s", err)
		}
	}

	if !watching {
		return
	}

	log.Println("Watching the library directories for changes.")

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	<-signalChan

	log.Println("Shutting down.")
	if cache != nil {
		if err := cache.Flush(); err != nil {
			log.Printf("Error flushing analysis cache: %s", err)
		}
	}
}
