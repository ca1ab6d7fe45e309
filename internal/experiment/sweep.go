package experiment

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/xrts/internal/config"
)

// Sweep runs independent configurations with at most workers solves in
// flight. workers <= 0 uses GOMAXPROCS. Outcomes are returned in the order
// of runs; the first failing run cancels the rest.
func Sweep(ctx context.Context, runs []*config.Config, workers int, log logrus.FieldLogger) ([]*Outcome, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	outcomes := make([]*Outcome, len(runs))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, cfg := range runs {
		i, cfg := i, cfg
		eg.Go(func() error {
			e := New(cfg)
			e.Log = log.WithField("sweep_index", i)
			out, err := e.Run(ctx)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// IonTemperatureSweep derives one configuration per ratio T_e/T_i from
// base, with every ion temperature set to T_e/ratio.
func IonTemperatureSweep(base *config.Config, ratios []float64) ([]*config.Config, error) {
	out := make([]*config.Config, 0, len(ratios))
	for _, r := range ratios {
		if !(r > 0) {
			return nil, fmt.Errorf("%w: temperature ratio must be positive, got %g", config.ErrInvalid, r)
		}
		c := base.Clone()
		for i := range c.Plasma.Ions {
			c.Plasma.Ions[i].TemperatureK = 0
			c.Plasma.Ions[i].TemperatureEV = c.Plasma.ElectronTemperatureEV / r
		}
		c.Name = fmt.Sprintf("%s_ti%s", base.Name, strconv.FormatFloat(r, 'g', -1, 64))
		out = append(out, c)
	}
	return out, nil
}
