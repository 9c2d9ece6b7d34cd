package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/Amund211/blitzstats/internal/adapters/statsprovider"
	"github.com/Amund211/blitzstats/internal/config"
	"github.com/Amund211/blitzstats/internal/domain"
	"github.com/Amund211/blitzstats/internal/logging"
	"github.com/Amund211/blitzstats/internal/ports"
)

const usage = "Usage: get-snapshot <region> <nickname|account id> [stat...]"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// resolveStatFields looks up every requested stat before anything is fetched
func resolveStatFields(names []string) ([]domain.StatField, error) {
	fields := make([]domain.StatField, 0, len(names))
	for _, name := range names {
		field, err := domain.LookupStatField(name)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, nil
}

// writeStats prints one line per field with the value for all battles and, when present, rating battles
func writeStats(w io.Writer, snapshot *domain.PlayerSnapshot, fields []domain.StatField) error {
	format := func(value float64) string {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}

	for _, field := range fields {
		line := field.Name + "\tall=" + format(field.Get(&snapshot.All))
		if snapshot.Rating != nil {
			line += "\trating=" + format(field.Get(snapshot.Rating))
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeSnapshotJSON(w io.Writer, snapshot *domain.PlayerSnapshot) error {
	data, err := ports.SnapshotToResponseData(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, data, "", "  "); err != nil {
		return fmt.Errorf("failed to indent snapshot: %w", err)
	}
	indented.WriteString("\n")

	_, err = indented.WriteTo(w)
	return err
}

func run(args []string, stdout, stderr io.Writer) int {
	// Logs go to stderr so stdout is only the output
	logger := slog.New(slog.NewTextHandler(stderr, nil))
	fail := func(msg string, err error) int {
		logger.Error(msg, "error", err.Error())
		return 1
	}

	if len(args) < 2 {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	region, err := domain.ParseRegion(args[0])
	if err != nil {
		return fail("Invalid region", err)
	}

	ref, err := domain.ParsePlayerRef(args[1])
	if err != nil {
		return fail("Invalid player", err)
	}

	fields, err := resolveStatFields(args[2:])
	if err != nil {
		return fail("Invalid stat", err)
	}

	conf, err := config.ConfigFromEnv()
	if err != nil {
		return fail("Failed to load config", err)
	}

	httpClient := &http.Client{
		Timeout: 10 * time.Second,
	}
	api, err := statsprovider.NewWargamingAPIOrMock(conf, httpClient, statsprovider.NewDefaultRequestLimiter(time.Now, time.After))
	if err != nil {
		return fail("Failed to initialize Wargaming API", err)
	}

	provider, stop, err := statsprovider.NewWargamingStatsProvider(api, conf.StatsRetryBackoff(), time.Now)
	if err != nil {
		return fail("Failed to initialize stats provider", err)
	}
	defer stop()

	ctx, cancel := context.WithTimeout(logging.AddToContext(context.Background(), logger), 30*time.Second)
	defer cancel()

	snapshot, err := provider.GetSnapshot(ctx, string(region), ref)
	if err != nil {
		return fail("Failed to get snapshot", err)
	}

	if err := domain.Normalize(snapshot); err != nil {
		return fail("Failed to normalize snapshot", err)
	}

	if len(fields) > 0 {
		err = writeStats(stdout, snapshot, fields)
	} else {
		err = writeSnapshotJSON(stdout, snapshot)
	}
	if err != nil {
		return fail("Failed to write output", err)
	}

	return 0
}
