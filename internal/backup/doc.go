// Package backup implements export and restore of application state as a
// single portable JSON document. Sensitive categories (service API keys,
// widget credential material) can be isolated and sealed with a
// password-derived key; restore replaces whole store collections and never
// merges.
package backup
