// =============================================================================
// Deliberation List Generator - Main Entry Point
// =============================================================================
//
// USAGE:
//   deliblist process   - Build deliberation lists from the input directory
//   deliblist inspect   - Show the column analysis of one file
//   deliblist serve     - Serve the local HTTP API
//   deliblist validate  - Validate the configuration file
//   deliblist version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : engine, readers, writers, configuration, HTTP surface
//   - pkg/utils  : file discovery, naming, archival and logs
//
// =============================================================================

package main

import (
	"github.com/boundou-sig/deliblist/cmd"
)

func main() {
	cmd.Execute()
}
