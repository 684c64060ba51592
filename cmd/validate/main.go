// Command validate re-reads an exported scored-facility JSON document and
// checks its internal consistency: bounds, voting arithmetic, ordering, and
// the zero-release rule.
//
// Usage:
//
//	go run ./cmd/validate -json data/scored_facilities.json
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/export"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "FAIL:", err)
		os.Exit(1)
	}
}

func run() error {
	jsonPath := flag.String("json", "", "path to the exported scored-facility JSON")
	flag.Parse()

	if *jsonPath == "" {
		flag.Usage()
		return errors.New("missing required flag: -json")
	}

	f, err := os.Open(*jsonPath)
	if err != nil {
		return fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	records, err := export.Read(f)
	if err != nil {
		return err
	}

	var failures []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			failures = append(failures, fmt.Sprintf(format, args...))
		}
	}

	for i, r := range records {
		if i > 0 {
			check(records[i-1].ID < r.ID, "%s: records not sorted by id", r.ID)
		}

		if r.RiskScore != nil {
			check(*r.RiskScore >= 0 && *r.RiskScore <= 100, "%s: risk_score %v out of [0,100]", r.ID, *r.RiskScore)
			check(r.ProximityMultiplier >= 1.0 && r.ProximityMultiplier <= 2.0,
				"%s: proximity_multiplier %v out of [1,2]", r.ID, r.ProximityMultiplier)
			if r.TotalReleaseKG == 0 {
				check(*r.RiskScore == 0, "%s: zero-release facility with risk %v", r.ID, *r.RiskScore)
			}
		} else {
			check(!r.Anomaly, "%s: unscored facility flagged anomalous", r.ID)
		}

		votes := len(r.AnomalyVotes)
		check(r.Anomaly == (votes >= 2), "%s: anomaly=%v with %d votes", r.ID, r.Anomaly, votes)
		check(r.AnomalyConfidence == 100*float64(votes)/4,
			"%s: confidence %v does not match %d votes", r.ID, r.AnomalyConfidence, votes)

		for _, c := range r.Chemicals {
			check(c.AmountKG > 0, "%s: zero-amount chemical %s exported", r.ID, c.Name)
		}
	}

	if len(failures) > 0 {
		for _, f := range failures {
			fmt.Fprintln(os.Stderr, " -", f)
		}
		return fmt.Errorf("%d invariant violations in %d records", len(failures), len(records))
	}

	fmt.Printf("OK: %d records validated\n", len(records))
	return nil
}
