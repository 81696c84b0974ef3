package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"imgur-archive-hunter/archive"
	"imgur-archive-hunter/hunt"
	"imgur-archive-hunter/mirror"
	"imgur-archive-hunter/tr"
)

type config struct {
	OutputDir      string `env:"HUNTER_OUTPUT_DIR" envDefault:"downloads"`
	TimeoutSeconds int    `env:"HUNTER_TIMEOUT_SECONDS" envDefault:"20"`
	BestQuality    bool   `env:"HUNTER_BEST_QUALITY"`
	Mirror         string `env:"HUNTER_MIRROR"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	defer tr.Shutdown()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}

	outputDir := flag.String("o", cfg.OutputDir, "directory downloads are saved into")
	bestQuality := flag.Bool("best", cfg.BestQuality, "prefer video and animated formats over static images")
	batchFile := flag.String("batch", "", "file with one source URL per line")
	retry := flag.Bool("retry", false, "retry failed items once after the batch completes")
	flag.Parse()

	urls, err := collectURLs(*batchFile, flag.Args())
	if err != nil {
		return err
	}

	resolver := archive.NewResolver()
	resolver.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second

	runner := hunt.New(resolver, archive.NewWriter())

	opts := hunt.Options{BestQuality: *bestQuality}
	if cfg.Mirror != "" {
		mirrorURL, err := url.Parse(cfg.Mirror)
		if err != nil {
			return fmt.Errorf("parsing HUNTER_MIRROR: %w", err)
		}
		dest, err := mirror.NewDestination(context.Background(), mirrorURL)
		if err != nil {
			return fmt.Errorf("configuring mirror: %w", err)
		}
		defer dest.Close()
		opts.Mirror = dest
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nstopping after the current item...")
		runner.Cancel()
	}()

	if err := runner.Start(urls, *outputDir, opts); err != nil {
		return err
	}
	drainUntilFinished(runner)

	if *retry && runner.HasRetryable() {
		fmt.Println("retrying failed items...")
		if err := runner.RetryFailed(); err != nil {
			return err
		}
		drainUntilFinished(runner)
	}

	failed := 0
	for _, it := range runner.Items() {
		if it.Status != hunt.StatusSuccess {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d item(s) did not succeed", failed)
	}
	return nil
}

func collectURLs(batchFile string, args []string) ([]string, error) {
	if batchFile != "" {
		f, err := os.Open(batchFile)
		if err != nil {
			return nil, fmt.Errorf("opening batch file: %w", err)
		}
		defer f.Close()

		var urls []string
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				urls = append(urls, trimmed)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading batch file: %w", err)
		}
		if len(urls) == 0 {
			return nil, fmt.Errorf("batch file %s is empty", batchFile)
		}
		return urls, nil
	}

	if len(args) != 1 {
		return nil, fmt.Errorf("usage: imgur-archive-hunter [-o dir] [-best] [-retry] <url> | -batch <file>")
	}
	return []string{args[0]}, nil
}

func drainUntilFinished(runner *hunt.Runner) {
	for ev := range runner.Events() {
		switch ev.Kind {
		case hunt.EventLog:
			fmt.Println(ev.Message)
		case hunt.EventItem:
			line := fmt.Sprintf("%-12s %s", ev.Item.Status, ev.Item.SourceURL)
			if ev.Item.Reason != "" {
				line += " (" + ev.Item.Reason + ")"
			}
			if ev.Item.ResultPath != "" {
				line += " -> " + ev.Item.ResultPath
			}
			fmt.Println(line)
		case hunt.EventProgress:
			fmt.Printf("[%d/%d]\n", ev.Value, ev.Total)
		case hunt.EventFinished:
			fmt.Println("finished:", ev.State)
			return
		}
	}
}
