package geo

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	gocache "github.com/patrickmn/go-cache"
	"github.com/xrash/smetrics"
)

// unknownCity is the sentinel the GeoIP path produces when it cannot place
// an address. It never matches anything.
const unknownCity = "Unknown"

// Coordinates is a city center point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Resolver translates a free-text city name to coordinates. It tries an
// exact hit against the reference table first, then an approximate
// jaro-winkler scan, accepting the best candidate only above the
// similarity threshold. Every lookup result, including misses, is
// memoized: the reference table never changes during process lifetime, so
// the cache never needs eviction.
type Resolver struct {
	cities    map[string]Coordinates
	names     []string // sorted; makes tie-breaks deterministic
	threshold float64
	cache     *gocache.Cache
}

type lookupResult struct {
	coords Coordinates
	found  bool
}

// NewResolver builds a resolver over an immutable reference table.
// Tests inject small fixture tables here.
func NewResolver(cities map[string]Coordinates, threshold float64) *Resolver {
	names := make([]string, 0, len(cities))
	for name := range cities {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Resolver{
		cities:    cities,
		names:     names,
		threshold: threshold,
		cache:     gocache.New(gocache.NoExpiration, 0),
	}
}

// Resolve returns the coordinates for name, or ok=false when the name is
// unknown and no reference entry scores above the threshold. Among
// equally-scored candidates the lexicographically smallest name wins.
// Safe for concurrent use.
func (r *Resolver) Resolve(name string) (Coordinates, bool) {
	if name == "" || name == unknownCity {
		return Coordinates{}, false
	}

	if cached, hit := r.cache.Get(name); hit {
		res := cached.(lookupResult)
		return res.coords, res.found
	}

	if coords, ok := r.cities[name]; ok {
		r.cache.Set(name, lookupResult{coords: coords, found: true}, gocache.NoExpiration)
		return coords, true
	}

	coords, found := r.scan(name)
	r.cache.Set(name, lookupResult{coords: coords, found: found}, gocache.NoExpiration)
	return coords, found
}

// scan walks the full reference table in sorted order looking for the
// highest-scoring approximate match. Strictly-greater comparison plus the
// sorted walk means ties resolve to the smallest name, not map order.
func (r *Resolver) scan(name string) (Coordinates, bool) {
	var (
		best      string
		bestScore float64
	)

	for _, candidate := range r.names {
		score := smetrics.JaroWinkler(name, candidate, 0.7, 4)
		if score > bestScore {
			bestScore = score
			best = candidate
		}
	}

	if bestScore <= r.threshold {
		return Coordinates{}, false
	}
	return r.cities[best], true
}

// LoadCities reads a geonames-format TSV (cities5000.txt): tab-separated,
// city name in column 2, latitude and longitude in columns 4 and 5.
// Rows with unparsable coordinates default them to zero, matching the
// permissive behavior of the upstream dataset tooling.
func LoadCities(path string) (map[string]Coordinates, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cities file: %w", err)
	}
	defer f.Close()

	cities := make(map[string]Coordinates)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), "\t")
		if len(parts) <= 5 {
			continue
		}

		name := parts[2]
		lat, _ := strconv.ParseFloat(parts[4], 64)
		lng, _ := strconv.ParseFloat(parts[5], 64)
		cities[name] = Coordinates{Lat: lat, Lng: lng}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cities file: %w", err)
	}

	return cities, nil
}
