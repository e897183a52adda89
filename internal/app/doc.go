// Package app wires the flagpole manifest inspector: configuration,
// logging, manifest loading, and plan rendering for the CLI.
package app
