// predict is the command-line front end: fetch elements, run the two-phase
// pass search for the configured observer, print the report, and optionally
// export it to a timestamped file.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/passes"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/propagation"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/report"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/tle"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (optional)")
	years := flag.Float64("years", 0, "prediction horizon in years, overrides the config (0 < years <= 10)")
	export := flag.Bool("export", false, "write the report to ISS_Passes_<location>_<timestamp>.txt")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(*configPath, *years, *export, logger); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath string, yearsOverride float64, export bool, logger *slog.Logger) error {
	cfg := DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = loadConfig(configPath)
		if err != nil {
			return err
		}
	}
	if yearsOverride != 0 {
		cfg.Years = yearsOverride
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	entry, err := loadElements(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("elements loaded",
		"name", entry.Name,
		"norad_id", entry.NORADID,
		"epoch", entry.Epoch.UTC().Format(time.RFC3339),
	)

	prop, err := propagation.NewSGP4Propagator(entry.Line1, entry.Line2, entry.NORADID)
	if err != nil {
		return err
	}
	topo, err := propagation.NewTopocentric(prop, cfg.LatDeg, cfg.LonDeg, cfg.AltM)
	if err != nil {
		return err
	}

	searchCfg := passes.DefaultConfig()
	searchCfg.MaxDistanceKm = cfg.MaxDistanceKm
	searcher, err := passes.NewSearcher(topo, entry.Epoch, searchCfg, logger)
	if err != nil {
		return err
	}

	start := time.Now().UTC().Truncate(time.Second)
	horizon := time.Duration(cfg.Years * 365 * 24 * float64(time.Hour))

	fmt.Fprintf(os.Stderr, "Scanning %.1f days for passes within %.0f km of %s...\n",
		horizon.Hours()/24, cfg.MaxDistanceKm, cfg.LocationName)

	found, err := searcher.Search(ctx, start, horizon)
	if err != nil {
		return fmt.Errorf("pass search: %w", err)
	}

	content := report.Format(report.Options{
		LocationName:  cfg.LocationName,
		LatitudeDeg:   cfg.LatDeg,
		LongitudeDeg:  cfg.LonDeg,
		MaxDistanceKm: cfg.MaxDistanceKm,
		TLEEpoch:      entry.Epoch,
		GeneratedAt:   time.Now(),
		Location:      report.LoadLocation(cfg.Timezone),
	}, found)

	fmt.Print(content)

	if export {
		path, err := report.Export(cfg.ExportDir, cfg.LocationName, content, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Report exported to", path)
	}
	return nil
}

// loadElements reads the TLE from a local file when configured, otherwise
// fetches from the upstream source, and picks the configured satellite.
func loadElements(ctx context.Context, cfg Config, logger *slog.Logger) (tle.Entry, error) {
	var data []byte
	var err error

	if cfg.TLEFile != "" {
		data, err = os.ReadFile(cfg.TLEFile)
		if err != nil {
			return tle.Entry{}, fmt.Errorf("reading TLE file: %w", err)
		}
	} else {
		fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		data, err = tle.NewFetcher(cfg.TLEURL, logger).Fetch(fetchCtx)
		if err != nil {
			return tle.Entry{}, fmt.Errorf("fetching TLE: %w", err)
		}
	}

	entries, err := tle.Parse(bytes.NewReader(data), logger)
	if err != nil {
		return tle.Entry{}, err
	}

	ds := tle.NewDataset(cfg.TLEURL, time.Now(), entries)
	entry, ok := ds.Find(cfg.NORADID)
	if !ok {
		return tle.Entry{}, fmt.Errorf("satellite %d not found in TLE data (%d entries)", cfg.NORADID, len(entries))
	}
	return entry, nil
}
