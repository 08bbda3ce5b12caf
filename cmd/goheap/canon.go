package main

import (
	"fmt"
	"io"
	"os"

	"github.com/2x3systems/goheap/goheap"
	"github.com/2x3systems/goheap/libheap"
	"github.com/2x3systems/goheap/libheap/catalog"
	"github.com/2x3systems/goheap/libheap/grammar"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

// runCanon reads a heap file, builds a grammar from its rules and prints the canonical forms of
// each of its heaps.  If catalogPath is given, each canonical form is also added to that catalog.
func runCanon(out io.Writer, pathname, catalogPath string, opts goheap.Opts) (err error) {
	src, err := os.ReadFile(pathname)
	if err != nil {
		return errors.Wrapf(err, "reading %q", pathname)
	}
	defs, err := libheap.ParseDefs(string(src))
	if err != nil {
		return errors.Wrapf(err, "parsing %q", pathname)
	}

	G, err := grammar.FromDefs(defs)
	if err != nil {
		return errors.Wrapf(err, "rules in %q", pathname)
	}
	canon := grammar.NewCanonicalizer(G, opts)
	klog.V(1).Infof("canon: %d rules, %d heaps, confluent=%v", G.NumRules(), len(defs.Heaps), opts.Confluent)

	var cat *catalog.Catalog
	if catalogPath != "" {
		if cat, err = catalog.OpenCatalog(catalog.CatalogOpts{DbPathName: catalogPath}); err != nil {
			return err
		}
		defer func() {
			if closeErr := cat.Close(); err == nil {
				err = closeErr
			}
		}()
	}

	printOpts := goheap.DefaultPrintOpts
	for i, def := range defs.Heaps {
		for j, hc := range canon.Canonicalize(def.HC) {
			printOpts.Label = fmt.Sprintf("heap[%d] canonical[%d]", i, j)
			hc.WriteAsString(out, printOpts)

			if cat != nil {
				added, err := cat.TryAdd(hc)
				if err != nil {
					return err
				}
				klog.V(2).Infof("canon: heap[%d] canonical[%d] added=%v", i, j, added)
			}
		}
	}

	if cat != nil {
		klog.V(1).Infof("canon: catalog holds %d heaps", cat.NumHeaps())
	}
	return nil
}
