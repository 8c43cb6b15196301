package store

import (
	"encoding/json"

	"github.com/pkg/errors"
)

func encode(v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode record")
	}
	return payload, nil
}

func decodeRun(payload []byte) (Run, error) {
	var run Run
	if err := json.Unmarshal(payload, &run); err != nil {
		return Run{}, errors.Wrap(err, "decode run")
	}
	return run, nil
}

func decodeSample(payload []byte) (Sample, error) {
	var sample Sample
	if err := json.Unmarshal(payload, &sample); err != nil {
		return Sample{}, errors.Wrap(err, "decode sample")
	}
	return sample, nil
}
