// Package commands defines the yumsg CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - list       Print chats, optionally filtered by status
//   - fingerprint Print a chat's established fingerprint
//   - delete     Remove a chat record
//   - reap       Run one StaleReaper sweep immediately
//   - demo       Run a full two-party handshake in process over the
//     loopback transport and print the resulting fingerprint, since
//     this module owns no concrete network transport
//
// # Implementation
//
// The root command opens (or creates) the SQLite-backed ChatStore under
// --home before any subcommand runs, so handlers share one store and
// one policy loaded from --config, building its dependencies once in
// PersistentPreRunE rather than per-command.
package commands
