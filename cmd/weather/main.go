// Command weather manages tracked cities and display preferences from the
// terminal.
//
// Usage:
//
//	weather search <query>
//	weather add <city name>
//	weather list
//	weather remove <id>
//	weather settings
//	weather settings set [-unit Celsius|Fahrenheit] [-text-size Normal|Large|Extra-Large] [-sound=true|false] [-brightness 0.1-1.0]
//	weather settings reset
//	weather wipe
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/couchcryptid/weather-tracker/internal/app"
	"github.com/couchcryptid/weather-tracker/internal/config"
	"github.com/couchcryptid/weather-tracker/internal/domain"
	"github.com/couchcryptid/weather-tracker/internal/observability"
)

const usage = `usage: weather <command> [arguments]

commands:
  search <query>        list catalog cities whose name contains query
  add <name>            fetch current weather and track a city
  list                  show tracked cities
  remove <id>           stop tracking a city
  settings              show preferences
  settings set [flags]  change preferences (-unit, -text-size, -sound, -brightness)
  settings reset        restore default preferences
  wipe                  delete every stored city and preference
`

var errUsage = errors.New("invalid usage")

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// Quiet by default; the daemon is the chatty one.
	if os.Getenv("LOG_LEVEL") == "" {
		os.Setenv("LOG_LEVEL", "warn")
	}
	if os.Getenv("LOG_FORMAT") == "" {
		os.Setenv("LOG_FORMAT", "text")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg)

	a, err := app.New(cfg, logger, observability.NewMetrics(), app.Deps{})
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	a.Load(ctx)
	err = run(ctx, a, os.Args[1:], os.Stdout)
	stop()
	if cerr := a.Close(); cerr != nil {
		logger.Error("close error", "error", cerr)
	}

	switch {
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	case err != nil:
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "search":
		return runSearch(a, strings.Join(rest, " "), out)
	case "add":
		if len(rest) == 0 {
			return fmt.Errorf("%w: add needs a city name", errUsage)
		}
		return runAdd(ctx, a, strings.Join(rest, " "), out)
	case "list":
		return runList(ctx, a, out)
	case "remove":
		if len(rest) != 1 {
			return fmt.Errorf("%w: remove needs exactly one id", errUsage)
		}
		return runRemove(ctx, a, rest[0], out)
	case "settings":
		return runSettings(ctx, a, rest, out)
	case "wipe":
		if err := a.Wipe(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "all stored data removed")
		return nil
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func runSearch(a *app.App, query string, out io.Writer) error {
	refs := a.SearchCatalog(query)
	if len(refs) == 0 {
		fmt.Fprintf(out, "no cities match %q\n", query)
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATE\tCOUNTRY\tLAT\tLON")
	for _, r := range refs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t%.4f\n", r.Name, r.State, r.CountryCode, r.Coord.Lat, r.Coord.Lon)
	}
	return tw.Flush()
}

func runAdd(ctx context.Context, a *app.App, name string, out io.Writer) error {
	before := len(a.LoadCities(ctx))
	city, err := a.AddByName(ctx, name)
	if err != nil && !errors.Is(err, domain.ErrPersist) {
		return err
	}

	unit := a.LoadPreferences(ctx).TemperatureUnit
	if len(a.LoadCities(ctx)) == before {
		fmt.Fprintf(out, "%s is already tracked (id %d)\n", city.Name, city.ID)
	} else {
		fmt.Fprintf(out, "added %s, %s: %s, %s (id %d)\n",
			city.Name, city.CountryCode, formatTemp(city, unit), city.Description, city.ID)
	}
	if err != nil {
		fmt.Fprintln(out, "warning:", err)
	}
	return nil
}

func runList(ctx context.Context, a *app.App, out io.Writer) error {
	cities := a.LoadCities(ctx)
	if len(cities) == 0 {
		fmt.Fprintln(out, "no cities tracked yet; try: weather add <name>")
		return nil
	}
	unit := a.LoadPreferences(ctx).TemperatureUnit
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCITY\tTEMP\tCONDITIONS\tCAPTURED")
	for _, c := range cities {
		fmt.Fprintf(tw, "%d\t%s, %s\t%s\t%s\t%s %s\n",
			c.ID, c.Name, c.CountryCode, formatTemp(c, unit), c.Description, c.CapturedDate, c.CapturedTime)
	}
	return tw.Flush()
}

func runRemove(ctx context.Context, a *app.App, arg string, out io.Writer) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: id must be an integer, got %q", errUsage, arg)
	}
	err = a.Remove(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrPersist) {
		return err
	}
	fmt.Fprintf(out, "removed %d\n", id)
	if err != nil {
		fmt.Fprintln(out, "warning:", err)
	}
	return nil
}

func runSettings(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) == 0 {
		printPreferences(out, a.LoadPreferences(ctx))
		return nil
	}

	var (
		p   domain.Preferences
		err error
	)
	switch args[0] {
	case "set":
		patch, perr := parsePatch(args[1:])
		if perr != nil {
			return perr
		}
		p, err = a.SetPreferences(ctx, patch)
	case "reset":
		p, err = a.ResetPreferences(ctx)
	default:
		return fmt.Errorf("%w: unknown settings command %q", errUsage, args[0])
	}

	if err != nil && !errors.Is(err, domain.ErrPersist) {
		return err
	}
	printPreferences(out, p)
	if err != nil {
		fmt.Fprintln(out, "warning:", err)
	}
	return nil
}

func parsePatch(args []string) (domain.PreferencesPatch, error) {
	fs := flag.NewFlagSet("settings set", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	unit := fs.String("unit", "", "temperature unit: Celsius or Fahrenheit")
	textSize := fs.String("text-size", "", "text size: Normal, Large, or Extra-Large")
	sound := fs.String("sound", "", "sound effects: true or false")
	brightness := fs.String("brightness", "", "screen brightness between 0.1 and 1.0")
	if err := fs.Parse(args); err != nil {
		return domain.PreferencesPatch{}, fmt.Errorf("%w: %v", errUsage, err)
	}

	var patch domain.PreferencesPatch
	if *unit != "" {
		u := domain.TemperatureUnit(*unit)
		patch.TemperatureUnit = &u
	}
	if *textSize != "" {
		ts := domain.TextSize(*textSize)
		patch.TextSize = &ts
	}
	if *sound != "" {
		b, err := strconv.ParseBool(*sound)
		if err != nil {
			return patch, fmt.Errorf("%w: -sound must be true or false", errUsage)
		}
		patch.SoundEffectsEnabled = &b
	}
	if *brightness != "" {
		f, err := strconv.ParseFloat(*brightness, 64)
		if err != nil {
			return patch, fmt.Errorf("%w: -brightness must be a number", errUsage)
		}
		patch.Brightness = &f
	}
	if patch == (domain.PreferencesPatch{}) {
		return patch, fmt.Errorf("%w: settings set needs at least one flag", errUsage)
	}
	return patch, nil
}

func printPreferences(out io.Writer, p domain.Preferences) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "unit\t%s\n", p.TemperatureUnit)
	fmt.Fprintf(tw, "text size\t%s\n", p.TextSize)
	fmt.Fprintf(tw, "sound effects\t%t\n", p.SoundEffectsEnabled)
	fmt.Fprintf(tw, "brightness\t%s\n", strconv.FormatFloat(p.Brightness, 'g', -1, 64))
	tw.Flush() //nolint:errcheck // terminal output
}

func formatTemp(c domain.TrackedCity, unit domain.TemperatureUnit) string {
	symbol := "°C"
	if unit == domain.Fahrenheit {
		symbol = "°F"
	}
	return fmt.Sprintf("%.0f%s", math.Round(c.Temperature(unit)), symbol)
}
