// Package fragment handles modular keyboard layout fragments: reading
// hardware detection and stored selections off the device, and
// resolving which fragment option each instance position shows.
//
// Three identity systems meet here. A fragment has a numeric id
// (0-254) the firmware reports during hardware detection; an instance
// has a string id used by keymap files; and the instance's array
// position is its protocol identity on the wire.
package fragment
