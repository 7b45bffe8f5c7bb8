package controllers

import (
	"sync"

	"github.com/gabrielonicala/quillia/internal/pkg/characteraccess"
	"github.com/gabrielonicala/quillia/internal/pkg/credits"
	"github.com/gabrielonicala/quillia/internal/pkg/dailyusage"
	"github.com/gabrielonicala/quillia/internal/pkg/journal"
	"github.com/gabrielonicala/quillia/internal/pkg/usagestats"
)

// Services bundles the domain services the controllers dispatch into. It is
// assembled once at boot.
type Services struct {
	Journal *journal.Service
	Credits *credits.Service
	Usage   *dailyusage.Service
	Access  *characteraccess.Service
	Stats   *usagestats.Service
}

var (
	services   *Services
	servicesMu sync.RWMutex
)

// Initialize installs the service container used by all handlers.
func Initialize(s *Services) {
	servicesMu.Lock()
	defer servicesMu.Unlock()
	services = s
}

func getServices() *Services {
	servicesMu.RLock()
	defer servicesMu.RUnlock()
	return services
}
