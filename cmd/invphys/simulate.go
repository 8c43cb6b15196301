package main

import (
	"context"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/born-ml/invphys/internal/backend/cpu"
	"github.com/born-ml/invphys/internal/config"
	"github.com/born-ml/invphys/internal/parallel"
	"github.com/born-ml/invphys/internal/parameters"
	"github.com/born-ml/invphys/internal/physics"
	"github.com/born-ml/invphys/internal/physics/generator"
	"github.com/born-ml/invphys/internal/store"
	"github.com/born-ml/invphys/internal/tensor"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// sampler is a generator that also reports the rows it retained.
type sampler interface {
	generator.Generator
	Sample(batchSize int) (*generator.MaskSample, error)
}

// Simulation runs the configured generator and operators over a synthetic scene.
type Simulation struct {
	cfg     config.Config
	device  tensor.Device
	backend tensor.Backend
	haze    *physics.Haze
	ledger  store.Store
	record  store.Run
}

// Stats aggregates the results of all batches.
type Stats struct {
	Batches int
	Masks   int

	// SampledFraction is the mean fraction of k-space rows retained per mask.
	SampledFraction float64

	// HazeMean is the mean intensity of the hazy observations.
	HazeMean float64

	// MRIError is the mean relative error of the zero-filled reconstructions, or NaN when
	// the image has no (real, imaginary) layout.
	MRIError float64

	// First is the sample drawn for batch 0.
	First *generator.MaskSample

	// FirstTensors holds the scene, observation and reconstruction of batch 0, by name.
	FirstTensors map[string]*physics.Tensor
}

// NewSimulation validates cfg and builds the operators. The ledger must be initialized.
func NewSimulation(cfg config.Config, ledger store.Store) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	device, err := tensor.ParseDevice(cfg.Device)
	if err != nil {
		return nil, errors.Wrapf(physics.ErrConfig, "%v", err)
	}
	haze, err := physics.NewHazeFromConfig(cfg.Operator)
	if err != nil {
		return nil, err
	}
	// Fail on a bad generator configuration before any worker starts.
	if _, err := newSampler(cfg, device, 0); err != nil {
		return nil, err
	}
	// Workers already spread batches over cores; keep each tensor op on its goroutine.
	backend := cpu.New()
	if cfg.Workers > 1 {
		backend = cpu.NewWithConfig(parallel.Sequential())
	}
	return &Simulation{
		cfg:     cfg,
		device:  device,
		backend: backend,
		haze:    haze,
		ledger:  ledger,
		record:  store.NewRun(cfg.Operator, cfg.Generator, cfg.ImgSize, cfg.Seed),
	}, nil
}

// Record returns the ledger entry describing this simulation.
func (s *Simulation) Record() store.Run {
	return s.record
}

// newSampler builds the generator of one worker, seeded with base+worker. The base is the
// experiment seed, or the generator string's own seed key when it has one, so that key
// cannot collapse every worker onto one sequence.
func newSampler(cfg config.Config, device tensor.Device, worker int) (sampler, error) {
	genConfig, base, err := splitSeed(cfg.Generator, cfg.Seed)
	if err != nil {
		return nil, err
	}
	seed := base + uint64(worker)
	gen, err := generator.New(genConfig, cfg.ImgSize, generator.WithDevice(device), generator.WithSeed(seed))
	if err != nil {
		return nil, err
	}
	smp, ok := gen.(sampler)
	if !ok {
		return nil, errors.Wrapf(physics.ErrConfig, "generator %q does not produce sampling masks", cfg.Generator)
	}
	return smp, nil
}

// splitSeed removes a seed key from a generator configuration string and returns the
// remaining configuration together with the seed (fallback when absent).
func splitSeed(genConfig string, fallback uint64) (string, uint64, error) {
	params := parameters.NewFromConfigString(genConfig)
	if _, ok := params["seed"]; !ok {
		return genConfig, fallback, nil
	}
	seed, err := parameters.PopParamOr(params, "seed", fallback)
	if err != nil {
		return "", 0, errors.Wrapf(physics.ErrConfig, "generator %q: %v", genConfig, err)
	}
	parts := make([]string, 0, len(params))
	for _, key := range params.Keys() {
		if value := params[key]; value != "" {
			parts = append(parts, key+"="+value)
		} else {
			parts = append(parts, key)
		}
	}
	return strings.Join(parts, ","), seed, nil
}

type batchResult struct {
	index    int
	sample   *generator.MaskSample
	fraction float64
	hazeMean float64
	mriError float64
	tensors  map[string]*physics.Tensor
}

// Run processes cfg.Batches batches on cfg.Workers goroutines. Worker w owns a generator
// seeded with base+w (see newSampler) and handles batches w, w+Workers, ..., so results
// only depend on the configuration.
func (s *Simulation) Run(ctx context.Context) (Stats, error) {
	if err := s.ledger.SaveRun(ctx, s.record); err != nil {
		return Stats{}, err
	}

	var (
		mu      sync.Mutex
		results = make([]batchResult, 0, s.cfg.Batches)
	)
	g, ctx := errgroup.WithContext(ctx)
	for worker := range s.cfg.Workers {
		g.Go(func() error {
			smp, err := newSampler(s.cfg, s.device, worker)
			if err != nil {
				return err
			}
			for batch := worker; batch < s.cfg.Batches; batch += s.cfg.Workers {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				res, err := s.runBatch(ctx, smp, batch)
				if err != nil {
					return errors.WithMessagef(err, "batch %d", batch)
				}
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return summarize(results, s.cfg.BatchSize), nil
}

func (s *Simulation) runBatch(ctx context.Context, smp sampler, batch int) (batchResult, error) {
	sample, err := smp.Sample(s.cfg.BatchSize)
	if err != nil {
		return batchResult{}, err
	}
	h, _ := s.cfg.Plane()
	res := batchResult{index: batch, sample: sample, mriError: math.NaN()}
	for element, lines := range sample.Lines {
		if err := s.ledger.SaveSample(ctx, store.Sample{
			RunID:   s.record.ID,
			Batch:   batch,
			Element: element,
			Center:  sample.Center,
			Lines:   lines,
		}); err != nil {
			return batchResult{}, err
		}
		res.fraction += float64(len(lines)) / float64(h)
	}
	res.fraction /= float64(len(sample.Lines))

	image, depth, err := s.scene(batch)
	if err != nil {
		return batchResult{}, err
	}
	hazy, err := s.haze.A(physics.HazeState{
		Image: image,
		Depth: depth,
		Light: physics.Scalar(atmosphericLight, s.backend),
	})
	if err != nil {
		return batchResult{}, err
	}
	res.hazeMean = mean(hazy.Data())
	if batch == 0 {
		res.tensors = map[string]*physics.Tensor{
			"mask":        sample.Mask,
			"image":       image,
			"depth":       depth,
			"observation": hazy,
		}
	}

	if s.cfg.Channels() == 2 {
		var recon *physics.Tensor
		recon, res.mriError, err = reconstruct(image, sample.Mask)
		if err != nil {
			return batchResult{}, err
		}
		if res.tensors != nil {
			res.tensors["reconstruction"] = recon
		}
	}
	klog.V(1).Infof("batch %d: fraction=%.3f haze=%.4f mri=%.4f", batch, res.fraction, res.hazeMean, res.mriError)
	return res, nil
}

// reconstruct returns the zero-filled reconstruction x0 = A*(A x) of image under mask and
// its relative error ||x0 - x|| / ||x||.
func reconstruct(image, mask *physics.Tensor) (*physics.Tensor, float64, error) {
	mri, err := physics.NewMRI(nil)
	if err != nil {
		return nil, 0, err
	}
	if err := mri.UpdateParameters(physics.Params{physics.KeyMask: mask}); err != nil {
		return nil, 0, err
	}
	y, err := mri.A(image)
	if err != nil {
		return nil, 0, err
	}
	x0, err := mri.AAdjoint(y)
	if err != nil {
		return nil, 0, err
	}
	var diff, ref float64
	want := image.Data()
	for i, v := range x0.Data() {
		d := float64(v) - float64(want[i])
		diff += d * d
		ref += float64(want[i]) * float64(want[i])
	}
	if ref == 0 {
		return x0, 0, nil
	}
	return x0, math.Sqrt(diff / ref), nil
}

func summarize(results []batchResult, batchSize int) Stats {
	stats := Stats{Batches: len(results), Masks: len(results) * batchSize, MRIError: math.NaN()}
	if len(results) == 0 {
		return stats
	}
	slices.SortFunc(results, func(a, b batchResult) int { return a.index - b.index })
	var mriSum float64
	mriCount := 0
	for _, r := range results {
		stats.SampledFraction += r.fraction
		stats.HazeMean += r.hazeMean
		if !math.IsNaN(r.mriError) {
			mriSum += r.mriError
			mriCount++
		}
		if r.index == 0 {
			stats.First = r.sample
			stats.FirstTensors = r.tensors
		}
	}
	n := float64(len(results))
	stats.SampledFraction /= n
	stats.HazeMean /= n
	if mriCount > 0 {
		stats.MRIError = mriSum / float64(mriCount)
	}
	return stats
}

func mean(data []float32) float64 {
	if len(data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range data {
		sum += float64(v)
	}
	return sum / float64(len(data))
}
