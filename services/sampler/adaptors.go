package sampler

import (
	"context"
	"time"

	"jhal-go/drivers/ds18b20"
	"jhal-go/drivers/ems22a"
	"jhal-go/x/timex"
)

// Thermometer samples a DS18B20. Collect reports ErrNotReady while the
// conversion is running so the worker retries instead of blocking.
type Thermometer struct {
	Name   string
	Device *ds18b20.Device
	// After overrides the wait between trigger and first collect.
	// Zero uses the conversion time of the current resolution.
	After time.Duration
	Now   func() time.Time
}

func (a *Thermometer) ID() string { return a.Name }

func (a *Thermometer) Trigger(ctx context.Context) (time.Duration, error) {
	if err := a.Device.ConversionStart(); err != nil {
		return 0, err
	}
	if a.After > 0 {
		return a.After, nil
	}
	return a.Device.Resolution().ConversionTime(), nil
}

func (a *Thermometer) Collect(ctx context.Context) (Sample, error) {
	ready, err := a.Device.Ready()
	if err != nil {
		return nil, err
	}
	if !ready {
		return nil, ErrNotReady
	}
	t, err := a.Device.ReadResult()
	if err != nil {
		return nil, err
	}
	return Sample{{Kind: "temperature", Value: int64(t.MilliCelsius()), Unit: "mC", TsMs: stamp(a.Now)}}, nil
}

// Encoder samples an EMS22A. The encoder has no conversion phase, so
// Trigger asks for an immediate collect.
type Encoder struct {
	Name   string
	Device *ems22a.Device
	Now    func() time.Time
}

func (a *Encoder) ID() string { return a.Name }

func (a *Encoder) Trigger(context.Context) (time.Duration, error) { return 0, nil }

func (a *Encoder) Collect(context.Context) (Sample, error) {
	s, err := a.Device.Read()
	if err != nil {
		return nil, err
	}
	ts := stamp(a.Now)
	return Sample{
		{Kind: "angle", Value: int64(s.MilliDegrees()), Unit: "mdeg", TsMs: ts},
		{Kind: "status", Value: int64(s.Status), Unit: "flags", TsMs: ts},
	}, nil
}

func stamp(now func() time.Time) int64 {
	if now == nil {
		return timex.NowMs()
	}
	return now().UnixMilli()
}
