// Package keymap implements the .viable layout file format.
//
// A layout file is a JSON document snapshotting the dynamic feature
// entries of a keyboard (tap dance, combos, key overrides, alternate
// repeat keys, leader sequences), the one-shot configuration, and the
// fragment selections keyed by instance ID. Entries carry an explicit
// "on" field; the wire-level enable bits are stripped on save and
// recombined on restore.
//
// The file records the keyboard UID so a layout saved from one board
// is not silently restored onto another.
package keymap
