// Package command is the Command Surface: one method per externally
// callable operation, each collapsing whatever it touches underneath
// (store, switcher, oauth, upstream) into a plain Go error whose message is
// fit for direct display. No internal error type crosses this boundary.
package command
