// Package logging owns the process-wide log configuration of the bridge.
//
// Two sinks can be active at once:
//
//   - the plain-text logger configured by Init (stderr or a file)
//   - the caller's hooks installed by SetHooks, restricted to the library
//     targets glide, redis, logger_core and glide_ffi
//
// Packages take loggers from Named. Those loggers resolve the current
// configuration on every entry, so loggers created at package init pick up
// a later Init or SetHooks.
//
// Hooks are installed at most once and never removed.
package logging
