// Command dpc2replay replays an L2 access trace through the prefetcher
// engine, either headless (printing a summary) or interactively via the
// dashboard TUI. This is the one place in the module that owns
// os.Exit/log.Fatal policy (SPEC_FULL.md §7) — the engine itself never
// terminates the process.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/ramyadhadidi/DPC2/dashboard"
	"github.com/ramyadhadidi/DPC2/engine"
	"github.com/ramyadhadidi/DPC2/host"
	"github.com/ramyadhadidi/DPC2/refhost"
	"github.com/ramyadhadidi/DPC2/trace"
)

func main() {
	var (
		tracePath     = flag.String("trace", "", "path to an access trace (.txt or .txt.gz)")
		seed          = flag.Uint64("seed", 1, "PRNG seed for the selector and sandboxes")
		mshrCapacity  = flag.Int("mshr", 16, "simulated MSHR capacity per cpu")
		interactive   = flag.Bool("dashboard", false, "step the trace interactively instead of running headless")
		scrambleLoads = flag.Bool("scramble-loads", false, "report ScrambleLoads=true in the knob banner")
		smallLLC      = flag.Bool("small-llc", false, "report SmallLLC=true in the knob banner")
		lowBandwidth  = flag.Bool("low-bandwidth", false, "report LowBandwidth=true in the knob banner")
	)
	flag.Parse()

	if *tracePath == "" {
		fmt.Fprintln(os.Stderr, "dpc2replay: -trace is required")
		os.Exit(2)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := run(*tracePath, *seed, int32(*mshrCapacity), *interactive,
		host.Knobs{ScrambleLoads: *scrambleLoads, SmallLLC: *smallLLC, LowBandwidth: *lowBandwidth},
		logger); err != nil {

		var inv engine.ErrInvariantViolation
		if errors.As(err, &inv) {
			logger.Fatal().Err(inv).Msg("fatal invariant violation, aborting replay")
		}
		logger.Fatal().Err(err).Msg("replay failed")
	}
}

func run(tracePath string, seed uint64, mshrCapacity int32, interactive bool, knobs host.Knobs, logger zerolog.Logger) error {
	tr, err := trace.Open(tracePath)
	if err != nil {
		return fmt.Errorf("open trace: %w", err)
	}
	defer tr.Close()

	h := refhost.New(mshrCapacity, knobs)
	eng := engine.New(seed, logger)

	if interactive {
		return dashboard.Run(eng, h, tr)
	}

	return replayHeadless(eng, h, tr, logger)
}

const replayCPU int32 = 0

func replayHeadless(eng *engine.Engine, h *refhost.Host, tr *trace.Reader, logger zerolog.Logger) error {
	eng.Initialize(replayCPU, h)

	accesses := 0
	for {
		access, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read trace: %w", err)
		}

		h.RecordDemand(access.Addr)
		if err := eng.Operate(replayCPU, access.Addr, access.IP, access.CacheHit, h); err != nil {
			return err
		}
		accesses++
	}

	logger.Info().
		Int("accesses", accesses).
		Int("prefetches", len(h.Fills())).
		Float64("accuracy", h.Accuracy()).
		Str("final_active", eng.Active(replayCPU).String()).
		Msg("replay complete")

	return nil
}
