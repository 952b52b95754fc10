package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fluxorio/threadkit/pkg/config"
	"github.com/fluxorio/threadkit/pkg/dispatch"
	"github.com/fluxorio/threadkit/pkg/logsink"
	promobs "github.com/fluxorio/threadkit/pkg/observability/prometheus"
	"github.com/fluxorio/threadkit/pkg/observability/tracing"
	"github.com/fluxorio/threadkit/pkg/workload"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or JSON configuration file")
	traced := flag.Bool("trace", false, "emit a stdout trace of the workload run")
	flag.Parse()

	cfg := config.Default()
	cfg.Concurrency = -1 // machine maximum unless the file says otherwise
	cfg.Verbosity = 1
	if *configPath != "" {
		if err := config.LoadWithEnv(*configPath, config.EnvPrefix, cfg); err != nil {
			fmt.Fprintln(os.Stderr, "loading configuration:", err)
			os.Exit(1)
		}
	}

	manager := dispatch.Instance()
	if err := manager.Apply(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "applying configuration:", err)
		os.Exit(1)
	}

	var shutdownTracing func(context.Context) error
	if *traced {
		var err error
		shutdownTracing, err = tracing.Init("threadkit-example")
		if err != nil {
			fmt.Fprintln(os.Stderr, "initialising tracing:", err)
			os.Exit(1)
		}
	}

	var poller *promobs.SnapshotPoller
	if cfg.Metrics {
		metrics := promobs.GetMetrics()
		metrics.ObservePool(manager.Pool())
		poller = promobs.NewSnapshotPoller(metrics, 100*time.Millisecond)
		poller.AddPool(manager.Pool())
		poller.Start(context.Background())
	}

	run := func(context.Context) error { return squareExpansion() }
	var err error
	if *traced {
		err = tracing.WithSpan(context.Background(), "square-expansion", run)
	} else {
		err = run(context.Background())
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "processing workload:", err)
		os.Exit(1)
	}

	if poller != nil {
		poller.Collect()
		poller.Stop()
	}
	if shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "shutting down tracing:", err)
		}
	}
}

// squareExpansion seeds a dynamic workload with small integers and expands
// each element with its square until the squares overflow the re-append limit.
func squareExpansion() error {
	sink := logsink.Instance()

	results := make(chan int, 64)
	wl := workload.NewDynamic[int](nil, func(wla *workload.Access[int], val int) error {
		next := val * val
		if next < 46340 {
			wla.Append(next)
		}
		results <- next
		return nil
	})
	wl.AppendAll([]int{2, 3, 5})

	if err := wl.Process(); err != nil {
		return err
	}
	close(results)

	count := 0
	for v := range results {
		count++
		sink.Println(fmt.Sprintf("expanded to %d", v))
	}
	fmt.Printf("explored %d elements with concurrency %d\n", count, dispatch.Instance().Concurrency())
	return nil
}
