package main

import (
	"math"

	"github.com/born-ml/invphys/internal/physics"
	"github.com/born-ml/invphys/internal/tensor"
)

const (
	atmosphericLight = 0.9
	maxSceneDepth    = 10.0
)

// scene returns a synthetic (B, C, H, W) image with values in [0, 1] and a (B, 1, H, W)
// depth map growing from the bottom row (depth 0) to the top row (maxSceneDepth).
// Each batch index gets a phase-shifted pattern.
func (s *Simulation) scene(batch int) (image, depth *physics.Tensor, err error) {
	b, c := s.cfg.BatchSize, s.cfg.Channels()
	h, w := s.cfg.Plane()

	pixels := make([]float32, b*c*h*w)
	distances := make([]float32, b*h*w)
	for e := 0; e < b; e++ {
		phase := 0.37 * float64(batch*b+e)
		for ch := 0; ch < c; ch++ {
			plane := pixels[(e*c+ch)*h*w : (e*c+ch+1)*h*w]
			for r := 0; r < h; r++ {
				for col := 0; col < w; col++ {
					v := 0.5 + 0.5*math.Sin(2*math.Pi*(float64(r)/float64(h)+float64(col)/float64(w))+phase+float64(ch))
					plane[r*w+col] = float32(v)
				}
			}
		}
		for r := 0; r < h; r++ {
			d := maxSceneDepth
			if h > 1 {
				d = maxSceneDepth * float64(h-1-r) / float64(h-1)
			}
			for col := 0; col < w; col++ {
				distances[(e*h+r)*w+col] = float32(d)
			}
		}
	}

	image, err = physics.FromSlice(pixels, tensor.Shape{b, c, h, w}, s.backend)
	if err != nil {
		return nil, nil, err
	}
	depth, err = physics.FromSlice(distances, tensor.Shape{b, 1, h, w}, s.backend)
	if err != nil {
		return nil, nil, err
	}
	return image, depth, nil
}
