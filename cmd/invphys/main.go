// Package main provides the invphys CLI: it samples MRI acceleration masks, records them in
// a ledger and simulates observations through the configured forward operators.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/born-ml/invphys/internal/config"
	"github.com/born-ml/invphys/internal/serialization"
	"github.com/born-ml/invphys/internal/store"
	"github.com/born-ml/invphys/internal/tensor"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

const version = "v0.0.1-dev"

var (
	flagConfig  = flag.String("config", "", "TOML experiment file. Defaults are used when empty.")
	flagStore   = flag.String("store", "", "Overrides the experiment's sample ledger: a SQLite file path.")
	flagWorkers = flag.Int("workers", 0, "If > 0 overrides the number of concurrent samplers.")
	flagPreview = flag.Bool("preview", true, "Print an ASCII preview of the first sampled mask.")
	flagExport  = flag.String("export", "", "If set, writes the tensors of batch 0 to this SafeTensors file.")
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("invphys %s\n", version)
		return
	}

	klog.InitFlags(nil)
	flag.Parse()

	cfg := must.M1(loadConfig())
	ledger := store.NewStore(cfg.Store)
	ctx := context.Background()
	if err := ledger.Init(ctx); err != nil {
		klog.Exitf("Failed to open sample ledger %q: %+v", cfg.Store, err)
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			klog.Errorf("Failed to close sample ledger: %v", err)
		}
	}()

	sim := must.M1(NewSimulation(cfg, ledger))
	stats, err := sim.Run(ctx)
	if err != nil {
		klog.Exitf("Simulation failed: %+v", err)
	}
	fmt.Println(renderSummary(cfg, sim.Record(), stats))
	if *flagPreview && stats.First != nil {
		fmt.Println(renderPreview(stats.First, 0))
	}
	if *flagExport != "" {
		must.M(exportFirstBatch(*flagExport, sim.Record(), stats))
		klog.Infof("Wrote batch 0 to %s", *flagExport)
	}
}

func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if *flagConfig != "" {
		var err error
		cfg, err = config.Load(*flagConfig)
		if err != nil {
			return cfg, err
		}
	}
	if *flagStore != "" {
		cfg.Store = *flagStore
	}
	if *flagWorkers > 0 {
		cfg.Workers = *flagWorkers
	}
	klog.V(1).Infof("Configuration: %+v", cfg)
	return cfg, cfg.Validate()
}

// exportFirstBatch writes the tensors of batch 0, tagged with the run that produced them.
func exportFirstBatch(path string, run store.Run, stats Stats) error {
	tensors := make(map[string]*tensor.RawTensor, len(stats.FirstTensors))
	for name, t := range stats.FirstTensors {
		tensors[name] = t.Raw()
	}
	return serialization.WriteSafeTensors(path, tensors, map[string]string{
		"run":       run.ID,
		"operator":  run.Operator,
		"generator": run.Generator,
	})
}
