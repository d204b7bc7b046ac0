// Package cmd implements the command-line interface for the Indexa embedded
// object store. It provides a hierarchical command structure for inspecting
// and mutating the stores of a local database.
//
// The package is organized into several subpackages:
//
//   - store: Commands for record operations (add, get, all, update, del,
//     clear, count, exists, index, watch, drop)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See indexa -help for a list of all commands.
package cmd
