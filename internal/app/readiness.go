package app

import (
	"context"

	httpserver "github.com/fairyhunter13/ai-interview-assistant/internal/adapter/httpserver"
)

// Pinger is anything that can report its own reachability.
type Pinger interface{ Ping(ctx context.Context) error }

// Dependencies names the optional backends probed by /readyz. Nil entries
// are not configured and are left out of the report.
type Dependencies struct {
	Store Pinger // session store (redis or memory)
	DB    Pinger // archive mirror
	Tika  Pinger
}

// BuildReadinessChecks returns one check per configured dependency.
func BuildReadinessChecks(deps Dependencies) []httpserver.ReadinessCheck {
	var checks []httpserver.ReadinessCheck
	add := func(name string, p Pinger) {
		if p == nil {
			return
		}
		checks = append(checks, httpserver.ReadinessCheck{Name: name, Check: p.Ping})
	}
	add("store", deps.Store)
	add("db", deps.DB)
	add("tika", deps.Tika)
	return checks
}
