// Command alttext captions the images in office documents. Given a file it
// writes a <stem>_alt sibling with generated descriptions; given a folder it
// does so for every supported document underneath it.
//
//	alttext [-config config.ini] [-openai] [-db alttext.db] <file-or-folder>
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"

	"github.com/jmorikawa/alttext"
)

var (
	configPath = flag.String("config", "config.ini", "Path to config file")
	dbPath     = flag.String("db", "", "Path to run record database, overrides config")
	openAI     = flag.Bool("openai", false, "Use OpenAI instead of the configured endpoint")

	lameduck bool
)

func run(ctx context.Context, cfg *alttext.Config, target string) error {
	fi, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("target document not found: %s", target)
		}
		return err
	}

	a, err := alttext.Init(alttext.InitOptions{
		Endpoint: cfg.Endpoint,
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		OpenAI:   *openAI,
		HttpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	})
	if err != nil {
		return err
	}

	if !a.IsHealthy() {
		return fmt.Errorf("captioning server is not responding")
	}

	logger, closeLog, err := alttext.NewLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	// An empty db path disables run records.
	var db *alttext.DB
	if cfg.DBPath != "" {
		if db, err = alttext.NewDB(ctx, cfg.DBPath); err != nil {
			return err
		}
		defer db.Close()
	}

	p := &alttext.Processor{
		Captioner: a.Captioner,
		Log:       logger,
		DB:        db,
		Stop:      func() bool { return lameduck },
	}

	var outputs []string
	if fi.IsDir() {
		outputs, err = p.ProcessFolder(ctx, target)
	} else {
		var out string
		out, err = p.ProcessFile(ctx, target)
		if out != "" {
			outputs = append(outputs, out)
		}
	}
	if err != nil && ctx.Err() == nil {
		return err
	}

	if len(outputs) == 0 {
		fmt.Println("No documents needed updating")
		return nil
	}
	for _, out := range outputs {
		fmt.Printf("Wrote %s\n", out)
	}
	return nil
}

func sighandler(ch chan os.Signal, cancel context.CancelFunc) {
	for {
		<-ch
		if lameduck {
			// Second signal, abandon the in-flight document
			fmt.Println("Exiting")
			cancel()
			return
		} else {
			fmt.Println("SIGINT received, finishing current document...")
			lameduck = true
		}
	}
}

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <file-or-folder>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := alttext.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	sigch := make(chan os.Signal, 2)
	signal.Notify(sigch, os.Interrupt)

	ctx, cancel := context.WithCancel(context.Background())
	go sighandler(sigch, cancel)

	if err := run(ctx, cfg, flag.Arg(0)); err != nil {
		log.Fatal(err)
	}
}
