package sim

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/stellarforge/coreserver/pkg/config"
)

// GalaxyPool seeds and serves the "available coordinates" pool of E.3's
// starter-planet choice flow, grounded on original_source's
// planet_creation.py: rather than persist a table of empty slots, a
// random subset of the galaxy/system/position topology is seeded once in
// memory at startup and filtered against currently-occupied coordinates
// on read.
type GalaxyPool struct {
	mu     sync.Mutex
	coords []Coordinate
}

// NewGalaxyPool seeds the pool from cfg's topology and INITIAL_PLANETS
// bound, mirroring the original's "shuffle-all when the target is a
// large fraction of the total slots, sample-without-replacement
// otherwise" split.
func NewGalaxyPool(cfg config.Config) *GalaxyPool {
	total := cfg.GalaxyCount * cfg.SystemsPerGalaxy * cfg.PositionsPerSystem
	target := cfg.InitialPlanets
	if target > total {
		target = total
	}
	if target < 0 {
		target = 0
	}

	seen := make(map[Coordinate]struct{}, target)

	if total > 0 && target > total/2 {
		all := make([]Coordinate, 0, total)
		for g := 1; g <= cfg.GalaxyCount; g++ {
			for s := 1; s <= cfg.SystemsPerGalaxy; s++ {
				for p := 1; p <= cfg.PositionsPerSystem; p++ {
					all = append(all, Coordinate{Galaxy: g, System: s, Position: p})
				}
			}
		}
		rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
		for _, c := range all[:target] {
			seen[c] = struct{}{}
		}
	} else {
		for len(seen) < target {
			c := Coordinate{
				Galaxy:   1 + rand.Intn(maxInt(cfg.GalaxyCount, 1)),
				System:   1 + rand.Intn(maxInt(cfg.SystemsPerGalaxy, 1)),
				Position: 1 + rand.Intn(maxInt(cfg.PositionsPerSystem, 1)),
			}
			seen[c] = struct{}{}
		}
	}

	coords := make([]Coordinate, 0, len(seen))
	for c := range seen {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].Galaxy != coords[j].Galaxy {
			return coords[i].Galaxy < coords[j].Galaxy
		}
		if coords[i].System != coords[j].System {
			return coords[i].System < coords[j].System
		}
		return coords[i].Position < coords[j].Position
	})

	return &GalaxyPool{coords: coords}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Available returns seeded coordinates not reported occupied by occupied,
// optionally filtered to a single galaxy/system, paged by (limit, offset).
func (p *GalaxyPool) Available(occupied func(Coordinate) bool, galaxy, system *int, limit, offset int) []Coordinate {
	p.mu.Lock()
	coords := p.coords
	p.mu.Unlock()

	filtered := make([]Coordinate, 0, len(coords))
	for _, c := range coords {
		if galaxy != nil && c.Galaxy != *galaxy {
			continue
		}
		if system != nil && c.System != *system {
			continue
		}
		if occupied(c) {
			continue
		}
		filtered = append(filtered, c)
	}

	if offset < 0 {
		offset = 0
	}
	if offset >= len(filtered) {
		return nil
	}
	end := len(filtered)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return filtered[offset:end]
}
