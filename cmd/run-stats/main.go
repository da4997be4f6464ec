// Command run-stats lists simulation runs persisted by hem-server,
// newest first, with headline cost and rating figures pulled from each
// stored summary.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/home-energy-foundry/hem0424/internal/repository"
)

// headline is the subset of a stored summary worth a table column.
type headline struct {
	TotalCost           float64 `json:"total_cost"`
	TotalEmissionsKgCO2 float64 `json:"total_emissions_kg_co2"`
	Rating              struct {
		Value float64 `json:"value"`
		Band  string  `json:"band"`
	} `json:"rating"`
}

func main() {
	dsn := flag.String("db", os.Getenv("HEM_DB_DSN"), "Postgres DSN (defaults to HEM_DB_DSN)")
	limit := flag.Int("limit", 50, "maximum runs to list")
	offset := flag.Int("offset", 0, "runs to skip")
	flag.Parse()

	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "usage: run-stats -db postgres://... [-limit 50]")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	repo, err := repository.Open(ctx, *dsn)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	runs, err := repo.ListRuns(ctx, *limit, *offset)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if len(runs) == 0 {
		fmt.Println("no stored runs")
		return
	}

	fmt.Printf(" %-36s │ %-16s │ %-12s │ %5s │ %8s │ %8s │ %6s\n",
		"Run", "Created", "Config", "Step", "Cost", "kgCO2", "Rating")
	fmt.Printf("──────────────────────────────────────┼──────────────────┼──────────────┼───────┼──────────┼──────────┼────────\n")

	for _, run := range runs {
		var h headline
		if err := json.Unmarshal(run.Summary, &h); err != nil {
			fmt.Fprintf(os.Stderr, "run %s: bad summary: %v\n", run.ID, err)
			continue
		}
		fmt.Printf(" %36s │ %16s │ %-12s │ %4.1fh │ %8.0f │ %8.0f │ %3s %2.0f\n",
			run.ID,
			run.CreatedAt.Format("2006-01-02 15:04"),
			truncate(run.ConfigName, 12),
			run.StepHours,
			h.TotalCost,
			h.TotalEmissionsKgCO2,
			h.Rating.Band,
			h.Rating.Value,
		)
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
