// Command replay feeds a recorded JSON-lines sensor trace through an
// alignment session and prints every transition, for tuning threshold and
// smoothing offline.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/samirrijal/darshanam/internal/core/alignment"
	"github.com/samirrijal/darshanam/internal/core/domain"
	"github.com/samirrijal/darshanam/internal/pkg/config"
	"github.com/samirrijal/darshanam/internal/pkg/geospatial"
	"github.com/samirrijal/darshanam/internal/pkg/logging"
)

func main() {
	threshold := flag.Float64("threshold", 0, "alignment half-width in degrees (default from config)")
	alpha := flag.Float64("alpha", 0, "smoothing factor in (0,1) (default from config)")
	margin := flag.Float64("exit-margin", -1, "extra degrees needed to leave alignment (default from config)")
	target := flag.String("target", "", `target as "lat,lng" or a maps link, if the trace has none`)
	observer := flag.String("observer", "", `observer as "lat,lng", if the trace has none`)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: replay [flags] [trace.jsonl]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load("darshanam-replay")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup("darshanam-replay", cfg.Log.Level, "text")

	if *threshold <= 0 {
		*threshold = cfg.Alignment.ThresholdDegrees
	}
	if *alpha <= 0 {
		*alpha = cfg.Alignment.SmoothingAlpha
	}
	if *margin < 0 {
		*margin = cfg.Alignment.ExitMarginDegrees
	}

	var in io.Reader = os.Stdin
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			log.Fatalf("open trace: %v", err)
		}
		defer f.Close()
		in = f
	}

	s := alignment.NewSession(alignment.Config{
		SessionID:         "replay",
		ThresholdDegrees:  *threshold,
		ExitMarginDegrees: *margin,
		SmoothingAlpha:    *alpha,
	})

	enc := json.NewEncoder(os.Stdout)
	var entered, exited int
	s.Subscribe(func(ev domain.AlignmentEvent) {
		if ev.Type == domain.EventAlignmentEntered {
			entered++
		} else {
			exited++
		}
		if err := enc.Encode(ev); err != nil {
			slog.Error("write event", "error", err)
		}
	})

	for name, v := range map[string]string{"target": *target, "observer": *observer} {
		if v == "" {
			continue
		}
		c, err := geospatial.ParseInput(v)
		if err != nil {
			log.Fatalf("-%s: %v", name, err)
		}
		if name == "target" {
			s.SetTarget(&c)
		} else {
			s.UpdateObserver(&c)
		}
	}

	n, err := alignment.Replay(in, s)
	if err != nil {
		log.Fatalf("replay: %v", err)
	}

	final := s.State()
	slog.Info("replay finished",
		"samples", n,
		"entered", entered,
		"exited", exited,
		"threshold", *threshold,
		"alpha", *alpha,
		"tracking", final.Tracking,
		"aligned", final.Aligned,
	)
}
