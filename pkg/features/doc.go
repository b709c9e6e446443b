// Package features synchronizes the per-feature entry tables of the
// keyboard: tap dances, combos, key overrides, alt repeat keys and
// leader sequences. Each table is a fixed number of indexed slots; the
// slot count is resolved once at connection time from the definition
// document and the protocol-info feature flags.
package features
