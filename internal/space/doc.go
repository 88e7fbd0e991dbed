// Package space defines user-created groupings of devices.
//
// A space is a named collection such as a room or a facade. Membership
// lives in a join table; the order devices were added to a space is the
// order the dashboard presents them in.
package space
