// =============================================================================
// Property Feed Converter - Main Entry Point
// =============================================================================
//
// Entry point of the converter CLI. It delegates to the cmd package.
//
// USAGE:
//   converter process       - Convert the listing feed into realestate documents
//   converter validate      - Report missing fields and fallback values
//   converter images        - Mirror listing photos
//   converter version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Feed parsing, mapping, document building, upload
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/property-feed-converter/cmd"
)

func main() {
	cmd.Execute()
}
