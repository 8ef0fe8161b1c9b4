// Package config carries the gateway's configuration: a static Config read
// once at startup and an immutable Runtime snapshot that can be replaced
// without restart.
//
// Holder owns the active Runtime. Readers load a snapshot once per request
// and use it for the whole request; a concurrent reload never tears a
// snapshot apart, and a rejected reload leaves the active snapshot in force.
// Reloads come from SIGHUP, the admin endpoint, or a direct call, and each
// is recorded with its trigger and the fields that changed.
package config
