package gateway

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/json"
)

// Plan tiers in ascending order of entitlement.
const (
	PlanFree       = "free"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// planRank orders plans; unknown plan names rank below every known tier.
func planRank(plan string) int {
	switch plan {
	case PlanFree:
		return 0
	case PlanPro:
		return 1
	case PlanEnterprise:
		return 2
	default:
		return -1
	}
}

// PlanAtLeast reports whether plan have meets or exceeds plan want.
func PlanAtLeast(have, want string) bool {
	return planRank(have) >= planRank(want)
}

// RouteClass identifies how the gateway treats a path.
type RouteClass int

const (
	// ClassTiered routes require a resolved principal whose plan meets the route tier.
	ClassTiered RouteClass = iota
	// ClassPublic routes are forwarded without principal resolution.
	ClassPublic
	// ClassAdmin routes are gated by the shared admin secret header.
	ClassAdmin
)

func (c RouteClass) String() string {
	switch c {
	case ClassAdmin:
		return "admin"
	case ClassPublic:
		return "public"
	default:
		return "tiered"
	}
}

// RouteTable declares how inbound paths are classified. Admin prefixes are
// checked first, then public; everything else is tiered. Tables are
// immutable once built so a handler can read one without coordination.
type RouteTable struct {
	// Admin prefixes require the shared secret header.
	Admin []string `json:"admin"`
	// Public prefixes are forwarded without principal resolution.
	Public []string `json:"public"`
	// Tiered maps path prefixes to the minimum plan they require. The
	// longest matching prefix wins.
	Tiered map[string]string `json:"tiered"`
	// DefaultPlan applies to tiered paths matching no Tiered prefix.
	DefaultPlan string `json:"defaultPlan"`
	// Cacheable maps GET path prefixes to a cache max-age in seconds.
	Cacheable map[string]int `json:"cacheable"`
}

// Route is the classification result for one request path.
type Route struct {
	Class        RouteClass
	RequiredPlan string        // tiered routes only
	CacheMaxAge  time.Duration // zero means no cache directive
}

// Classify resolves path against the table. Precedence is admin, then
// public, then tiered with the default plan as fallback.
func (t *RouteTable) Classify(path string) Route {
	route := Route{Class: ClassTiered, CacheMaxAge: t.cacheAge(path)}
	switch {
	case hasAnyPrefix(path, t.Admin):
		route.Class = ClassAdmin
	case hasAnyPrefix(path, t.Public):
		route.Class = ClassPublic
	default:
		route.RequiredPlan = t.DefaultPlan
		best := ""
		for prefix, plan := range t.Tiered {
			if strings.HasPrefix(path, prefix) && len(prefix) > len(best) {
				best, route.RequiredPlan = prefix, plan
			}
		}
	}
	return route
}

// cacheAge returns the configured max-age for path, longest prefix first.
func (t *RouteTable) cacheAge(path string) time.Duration {
	best, seconds := "", 0
	for prefix, age := range t.Cacheable {
		if strings.HasPrefix(path, prefix) && len(prefix) > len(best) {
			best, seconds = prefix, age
		}
	}
	return time.Duration(seconds) * time.Second
}

func (t *RouteTable) validate() error {
	if planRank(t.DefaultPlan) < 0 {
		return fmt.Errorf("route table: unknown default plan %q", t.DefaultPlan)
	}
	for prefix, plan := range t.Tiered {
		if planRank(plan) < 0 {
			return fmt.Errorf("route table: unknown plan %q for prefix %q", plan, prefix)
		}
	}
	for prefix, seconds := range t.Cacheable {
		if seconds <= 0 {
			return fmt.Errorf("route table: cacheable prefix %q needs a positive max-age, got %d", prefix, seconds)
		}
	}
	return nil
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// LoadRouteFile reads and validates a route table from a JSON file. A table
// that fails validation is rejected whole; callers keep whatever table they
// already have.
func LoadRouteFile(path string) (*RouteTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route table: %w", err)
	}
	var table RouteTable
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("parse route table %s: %w", path, err)
	}
	if table.DefaultPlan == "" {
		table.DefaultPlan = PlanFree
	}
	if err := table.validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

// DefaultRouteTable mirrors the hosted deployment's route layout. Used when
// no route file is configured.
func DefaultRouteTable() *RouteTable {
	return &RouteTable{
		Admin:  []string{"/admin/"},
		Public: []string{"/public/", "/webhooks/"},
		Tiered: map[string]string{
			"/api/briefs/":   PlanPro,
			"/api/screener/": PlanPro,
			"/api/exports/":  PlanEnterprise,
		},
		DefaultPlan: PlanFree,
		Cacheable: map[string]int{
			"/api/events":    30,
			"/api/reference": 300,
		},
	}
}
