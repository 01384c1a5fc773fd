// Package correlation matches inbound interactive events to the dialog that
// is waiting for them. Every rendered control set carries an opaque token;
// the broker keeps one open session per token and guarantees that a session
// resolves exactly once: with the first matching event, with a deadline
// expiry, or with an explicit cancel - never more than one of the three.
package correlation
