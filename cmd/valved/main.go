/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Command valved runs the Valve relay: it loads the configuration,
// wires the service facade, optionally serves stats over HTTP, and
// shuts down in order on SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sabouaram/valve/httpstats"
	"github.com/sabouaram/valve/logging"
	"github.com/sabouaram/valve/relay/filter"
	"github.com/sabouaram/valve/relay/service"
	"github.com/sabouaram/valve/valveconfig"
)

// statsLogInterval paces the periodic stats line when stats.log_enabled
// is set; the memory line has its own configured interval.
const statsLogInterval = time.Minute

func main() {
	var path string

	root := &cobra.Command{
		Use:   "valved",
		Short: "Run the Valve gated TCP relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				return fmt.Errorf("--config is required")
			}
			return run(cmd.Context(), path)
		},
	}
	root.Flags().StringVarP(&path, "config", "c", "", "path to the configuration file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("valved: %v", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, path string) error {
	cfg, err := valveconfig.Load(path)
	if err != nil {
		return err
	}

	var flt filter.Filter
	if name := cfg.Filter.Class; name != "" {
		b, ok := filter.Lookup(name)
		if !ok {
			return fmt.Errorf("unknown filter %q", name)
		}
		f, e := b()
		if e != nil {
			return e
		}
		flt = f
	}

	svc, err := service.New(cfg, flt)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if e := svc.Start(ctx); e != nil {
		return e
	}

	var stats *httpstats.Server
	if cfg.Stats.HTTPListen != "" {
		stats = httpstats.New(cfg.Stats.HTTPListen, svc)
		if e := stats.Start(ctx); e != nil {
			_ = svc.Stop(ctx)
			return e
		}
	}

	log := logging.Component("valved")

	if cfg.Stats.LogEnabled {
		go logStats(ctx, svc)
	}
	if cfg.Stats.MemoryLogInterval > 0 {
		go logMemory(ctx, cfg.Stats.MemoryLogInterval)
	}

	// Live reconfiguration is not supported; the watch only tells the
	// operator that a restart is needed to apply the rewrite.
	if e := valveconfig.Watch(path, func(valveconfig.Config) {
		log.Info("configuration changed on disk; restart to apply", nil, "file", path)
	}); e != nil {
		log.Error("configuration watch unavailable", nil, "error", e)
	}

	fmt.Println(color.GreenString("valved: started"))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if stats != nil {
		_ = stats.Stop(shutdownCtx)
	}

	if e := svc.Stop(shutdownCtx); e != nil {
		return e
	}

	st := svc.Stats()
	log.Info("final stats", nil,
		"direct_accepted", st.DirectCounters.Accepted,
		"direct_refused", st.DirectCounters.Refused,
		"controlled_accepted", st.ControlCounters.Accepted,
		"controlled_refused", st.ControlCounters.Refused,
		"resumes", st.Resumes,
		"pauses", st.Pauses,
	)

	return nil
}

func logStats(ctx context.Context, svc *service.Service) {
	log := logging.Component("stats")
	tick := time.NewTicker(statsLogInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			st := svc.Stats()
			log.Info("relay stats", nil,
				"direct_open", st.DirectOpen,
				"controlled_open", st.ControlledOpen,
				"direct_accepted", st.DirectCounters.Accepted,
				"direct_refused", st.DirectCounters.Refused,
				"controlled_accepted", st.ControlCounters.Accepted,
				"controlled_refused", st.ControlCounters.Refused,
				"resumes", st.Resumes,
				"pauses", st.Pauses,
			)
		}
	}
}

func logMemory(ctx context.Context, interval time.Duration) {
	log := logging.Component("memory")
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			log.Info("memory", nil,
				"alloc", ms.Alloc,
				"sys", ms.Sys,
				"heap_objects", ms.HeapObjects,
				"num_gc", ms.NumGC,
				"goroutines", runtime.NumGoroutine(),
			)
		}
	}
}
