// Command search runs one station search from the command line and prints
// the replies an end user would receive.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bbernstein/chargefinder/internal/app"
	"github.com/bbernstein/chargefinder/internal/config"
	"github.com/bbernstein/chargefinder/internal/models"
	"github.com/bbernstein/chargefinder/internal/search"
)

var buildApp = app.Build // Allow stubbing the search core in tests

type options struct {
	lat, lon    float64
	hasCoords   bool
	city        string
	preset      bool
	jsonOutput  bool
	metrics     bool
	envFile     string
	addName     string
	addAddress  string
	addOperator string
	addPowerKW  float64
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Float64Var(&opts.lat, "lat", 0, "latitude of the search origin")
	fs.Float64Var(&opts.lon, "lon", 0, "longitude of the search origin")
	fs.StringVar(&opts.city, "city", "", "search around a known city (Russian or English name)")
	fs.BoolVar(&opts.preset, "minsk", false, "search around the Minsk preset")
	fs.BoolVar(&opts.jsonOutput, "json", false, "print replies as JSON")
	fs.BoolVar(&opts.metrics, "metrics", false, "print Prometheus metrics after the replies")
	fs.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the environment")
	fs.StringVar(&opts.addName, "add", "", "submit a user station with this name at -lat/-lon")
	fs.StringVar(&opts.addAddress, "address", "", "address of the submitted station")
	fs.StringVar(&opts.addOperator, "operator", "", "operator of the submitted station")
	fs.Float64Var(&opts.addPowerKW, "power", 0, "power rating of the submitted station in kW")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["lat"] != set["lon"] {
		return nil, errors.New("-lat and -lon must be given together")
	}
	opts.hasCoords = set["lat"]

	modes := 0
	for _, on := range []bool{opts.hasCoords && opts.addName == "", opts.city != "", opts.preset, opts.addName != ""} {
		if on {
			modes++
		}
	}
	if modes != 1 {
		return nil, errors.New("exactly one of -lat/-lon, -city, -minsk or -add is required")
	}
	if opts.addName != "" && !opts.hasCoords {
		return nil, errors.New("-add requires -lat and -lon")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintln(stderr, err)
		}
		return 2
	}

	if err := config.LoadDotEnv(opts.envFile); err != nil {
		log.Warn().Err(err).Str("path", opts.envFile).Msg("Ignoring unreadable .env file")
	}
	cfg := config.LoadFromEnv()
	cfg.InitializeLogging()

	core, err := buildApp(ctx, cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "startup failed: %v\n", err)
		return 1
	}
	defer core.Close()

	var replies []search.Reply
	switch {
	case opts.addName != "":
		sub := models.UserSubmission{
			Name:      opts.addName,
			Address:   opts.addAddress,
			Operator:  opts.addOperator,
			Latitude:  opts.lat,
			Longitude: opts.lon,
		}
		if opts.addPowerKW > 0 {
			sub.PowerKW = models.Float64Ptr(opts.addPowerKW)
		}
		reply, _, _ := core.Service.AddStation(ctx, sub)
		replies = []search.Reply{reply}
	case opts.city != "":
		replies = core.Service.SearchCity(ctx, opts.city)
	case opts.preset:
		replies = core.Service.SearchPreset(ctx)
	case opts.hasCoords:
		replies = core.Service.HandleCoordinateSearch(ctx, opts.lat, opts.lon)
	}

	if err := writeReplies(stdout, replies, opts.jsonOutput); err != nil {
		_, _ = fmt.Fprintf(stderr, "writing replies: %v\n", err)
		return 1
	}
	if opts.metrics {
		if err := core.Metrics.WriteText(stdout); err != nil {
			_, _ = fmt.Fprintf(stderr, "writing metrics: %v\n", err)
			return 1
		}
	}
	return 0
}

func writeReplies(w io.Writer, replies []search.Reply, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(replies)
	}

	blocks := make([]string, 0, len(replies))
	for _, r := range replies {
		block := r.Text
		if r.MapURL != "" {
			block += "\n🗺️ " + r.MapURL
		}
		blocks = append(blocks, block)
	}
	_, err := fmt.Fprintln(w, strings.Join(blocks, "\n\n"))
	return err
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
