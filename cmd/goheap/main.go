package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/2x3systems/goheap/goheap"
	"github.com/go-python/gpython/py"
	"github.com/go-python/gpython/repl"
	"github.com/go-python/gpython/repl/cli"
	"github.com/plan-systems/klog"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/2x3systems/goheap/pyheap"
	_ "github.com/go-python/gpython/stdlib"
)

// replStartup is run in the REPL's module before the prompt appears.
const replStartup = "lib/_REPL_startup.py"

var (
	optsPath    = flag.String("opts", "", "YAML file of abstraction options")
	canonPath   = flag.String("canon", "", "heap file whose heaps are canonicalized by its rules")
	catalogPath = flag.String("catalog", "", "catalog that canonical heaps are added to (with -canon)")
	metricsAddr = flag.String("metrics-addr", "", "address to serve Prometheus metrics on (e.g. localhost:9090)")
)

func main() {
	fset := flag.NewFlagSet("", flag.ContinueOnError)
	klog.InitFlags(fset)
	fset.Set("logtostderr", "true")
	fset.Set("v", "1")
	klog.SetFormatter(&klog.FmtConstWidth{
		FileNameCharWidth: 16,
		UseColor:          true,
	})

	flag.Parse()

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			klog.Fatalf("metrics server: %v", http.ListenAndServe(*metricsAddr, mux))
		}()
	}

	opts := goheap.DefaultOpts()
	if *optsPath != "" {
		var err error
		if opts, err = goheap.LoadOpts(*optsPath); err != nil {
			klog.Fatalf("%v", err)
		}
	}

	if *canonPath != "" {
		err := runCanon(os.Stdout, *canonPath, *catalogPath, opts)
		klog.Flush()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	err := runScript(flag.Arg(0))
	klog.Flush()
	if err != nil {
		os.Exit(1)
	}
}

// runScript executes a gpython script with the _pyheap module available, or starts a REPL if
// pathname is empty.
func runScript(pathname string) error {
	ctx := py.NewContext(py.DefaultContextOpts())
	defer func() {
		ctx.Close()
		<-ctx.Done()
	}()

	var err error
	if pathname == "" {
		replCtx := repl.New(ctx)
		if _, err = py.RunFile(ctx, replStartup, py.CompileOpts{}, replCtx.Module); err == nil {
			cli.RunREPL(replCtx)
		}
	} else {
		start := time.Now()
		klog.V(1).Infof("script: running %q", pathname)
		if _, err = py.RunFile(ctx, pathname, py.CompileOpts{}, nil); err == nil {
			klog.V(1).Infof("script: %q finished in %v", pathname, time.Since(start))
		}
	}

	if err != nil {
		py.TracebackDump(err)
		klog.Errorf("script: %v", err)
	}
	return err
}
