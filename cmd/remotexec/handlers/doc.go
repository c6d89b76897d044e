// Package handlers implements the business logic for CLI commands.
//
// Collaborators (config loading, state backends, the provisioning engine)
// are created through package-level factory variables so tests can replace
// them.
package handlers
