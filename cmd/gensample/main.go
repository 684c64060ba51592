// Command gensample writes a deterministic ChemTRAC-style release CSV for
// fixtures and local runs. The same seed always produces the same file.
//
// Usage:
//
//	go run ./cmd/gensample -out data/sample_releases.csv -facilities 120 -seed 42
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"strconv"
)

// Downtown Toronto bounding box; a slice of facilities lands outside receptor
// range and a few get no coordinates at all.
const (
	latMin = 43.60
	latMax = 43.80
	lonMin = -79.55
	lonMax = -79.20

	missingCoordsRate = 0.04
)

var header = []string{
	"FACILITY_ID", "FACILITY_NAME", "NAICS_CODE_6_DESC_ENG", "EMPLOYEE_COUNT",
	"FA_LAT", "FA_LON", "CHEMICAL_NAME",
	"REL_AIR", "REL_WATER", "REL_LAND", "REL_DISPOSAL", "REL_RECYCLING",
}

type industryProfile struct {
	name      string
	chemicals []string
}

// Industry mixes loosely modelled on the ChemTRAC disclosure data.
var industries = []industryProfile{
	{"Metal Plating and Coating", []string{"Chromium (VI)", "Nickel", "Cadmium", "Sulphuric acid"}},
	{"Commercial Printing", []string{"Toluene", "Xylene", "Methanol", "VOCs"}},
	{"Dry Cleaning Services", []string{"Tetrachloroethylene", "Acetone"}},
	{"Automotive Repair", []string{"Benzene", "Toluene", "Particulate Matter 2.5"}},
	{"Food Manufacturing", []string{"Acetone", "Ethanol", "Particulate Matter 2.5"}},
	{"Chemical Manufacturing", []string{"Benzene", "Formaldehyde", "Vinyl chloride", "Styrene"}},
	{"Foundries", []string{"Lead", "Mercury", "Manganese", "Particulate Matter 2.5"}},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outPath := flag.String("out", "", "output CSV path")
	facilities := flag.Int("facilities", 120, "number of facilities to generate")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	if *outPath == "" {
		flag.Usage()
		return errors.New("missing required flag: -out")
	}

	f, err := os.Create(*outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	for i := range *facilities {
		if err := writeFacility(w, rng, i); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return f.Close()
}

func writeFacility(w *csv.Writer, rng *rand.Rand, n int) error {
	profile := industries[rng.Intn(len(industries))]
	id := fmt.Sprintf("FAC_%04d", n+1)
	name := fmt.Sprintf("%s Site %d", profile.name, n+1)
	employees := 3 + rng.Intn(200)

	lat := latMin + rng.Float64()*(latMax-latMin)
	lon := lonMin + rng.Float64()*(lonMax-lonMin)
	latStr := strconv.FormatFloat(lat, 'f', 5, 64)
	lonStr := strconv.FormatFloat(lon, 'f', 5, 64)
	if rng.Float64() < missingCoordsRate {
		latStr, lonStr = "", ""
	}

	// One row per chemical; mass is log-uniform so a few heavy emitters exist.
	count := 1 + rng.Intn(len(profile.chemicals))
	for _, chemical := range profile.chemicals[:count] {
		row := []string{
			id, name, profile.name, strconv.Itoa(employees),
			latStr, lonStr, chemical,
			releaseAmount(rng), releaseAmount(rng), "0", releaseAmount(rng), "0",
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row for %s: %w", id, err)
		}
	}
	return nil
}

func releaseAmount(rng *rand.Rand) string {
	if rng.Float64() < 0.4 {
		return "0"
	}
	// 0.1 kg to ~10 tonnes, log-uniform.
	kg := 0.1 * math.Pow(10, rng.Float64()*5)
	return strconv.FormatFloat(kg, 'f', 3, 64)
}
