// Package secret keeps credentials out of configuration files.
//
// Two mechanisms compose:
//   - Strict environment expansion: ${VAR} in a config value is replaced
//     from the environment, and a missing VAR fails the load instead of
//     producing a half-formed DSN (see ExpandEnvStrict).
//   - Secret references: values of the form secretref:<provider>:<ref> are
//     resolved through a named Provider (see Resolver). Built-in providers
//     read the environment ("env") and secret files ("file", the shape
//     container orchestrators mount under /run/secrets).
//
// A reference may stand alone or sit inline inside a larger value:
//
//	dsn: secretref:file:/run/secrets/db_dsn
//	dsn: postgres://gateway:secretref:env:DB_PASSWORD@db:5432/app
//
// Resolved values must never be logged; the config reload diff reports
// which fields changed, not their contents.
package secret
