package adapterfactory

import (
	"log/slog"

	"stratum-hq/strata/pkg/backend"
	"stratum-hq/strata/pkg/backend/flexiwan"
	"stratum-hq/strata/pkg/backend/openziti"
	"stratum-hq/strata/pkg/backend/opnsense"
	"stratum-hq/strata/pkg/config"
)

// CreateAll constructs every adapter in the fixed registration order:
// opnsense, openziti, flexiwan. Adapters without a configured management
// plane still validate and compile offline; only apply and connection
// tests need one. Use this for the validate/compile CLI paths where
// enablement is irrelevant.
func CreateAll(cfg *config.Config) []backend.Adapter {
	adapters := []backend.Adapter{
		opnsense.New(cfg.Adapters.OPNsense),
		openziti.New(cfg.Adapters.OpenZiti),
		flexiwan.New(cfg.Adapters.FlexiWAN),
	}

	slog.Debug("adapters created", "count", len(adapters))
	return adapters
}

// CreateEnabled constructs only the adapters whose config sections are
// enabled, preserving the registration order. Use this for apply, serve,
// and probing, where a disabled backend must not be contacted.
func CreateEnabled(cfg *config.Config) []backend.Adapter {
	var adapters []backend.Adapter

	if cfg.Adapters.OPNsense.Enabled {
		adapters = append(adapters, opnsense.New(cfg.Adapters.OPNsense))
	}
	if cfg.Adapters.OpenZiti.Enabled {
		adapters = append(adapters, openziti.New(cfg.Adapters.OpenZiti))
	}
	if cfg.Adapters.FlexiWAN.Enabled {
		adapters = append(adapters, flexiwan.New(cfg.Adapters.FlexiWAN))
	}

	slog.Debug("enabled adapters created", "count", len(adapters))
	return adapters
}
