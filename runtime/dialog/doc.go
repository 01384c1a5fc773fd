// Package dialog builds turn-by-turn data-collection exchanges on top of the
// correlation broker. Each step primitive renders a control set on the chat
// surface, opens one session for the freshly minted token, awaits exactly one
// resolution and decodes the winning choice into a typed result.
package dialog
