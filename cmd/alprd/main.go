// alprd is the backend of the ALPR dashboard. It serves the detection and
// retention API and deletes detection records older than the configured
// retention period.
//
// Usage:
//
//	# Start the server with the background cleanup scheduler
//	alprd run --config /etc/alprd/config.yaml
//
//	# Run a cleanup now
//	alprd retention cleanup
//
//	# Inspect or change the retention policy
//	alprd retention stats -o json
//	alprd retention config set --days 30 --enabled=true
//
//	# Show version information
//	alprd version
package main

import "os"

func main() {
	os.Exit(Execute())
}
