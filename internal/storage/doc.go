// Package storage provides SQLite-backed repositories for service
// connection profiles, the dashboard widget layout, named widget profiles,
// per-widget credential bags, user settings, and the backup event journal,
// with embedded schema migrations.
package storage
