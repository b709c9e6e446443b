// Package definition fetches and models the keyboard definition
// document. The device ships it as an LZMA-compressed JSON blob read
// out in fixed-size chunks; the parsed document carries the per-feature
// slot counts and, for modular keyboards, the fragment catalog and
// composition layout.
package definition
