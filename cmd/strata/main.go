// Strata is an intent-driven network configuration compiler.
//
// It reads a single intent document describing users, applications,
// segments, egress policies, and access rules, and translates it into the
// native configuration of heterogeneous enforcement points: an OPNsense
// firewall, an OpenZiti zero-trust overlay, and a flexiWAN SD-WAN fabric.
//
// Usage:
//
//	# Check an intent document against every adapter
//	strata validate -f intent.yaml
//
//	# Compile the document into per-backend artifacts
//	strata compile -f intent.yaml -o ./compiled
//
//	# Preview what an apply would change
//	strata apply -f intent.yaml --dry-run
//
//	# Push the compiled configuration to the enforcement points
//	strata apply -f intent.yaml
//
//	# Run the API server with file watching or Git polling
//	strata serve -c config.yaml
//
// For complete documentation, see: https://github.com/stratum-hq/strata
package main

func main() {
	Execute()
}
