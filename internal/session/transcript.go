package session

import (
	"fmt"
	"strings"
)

// Role identifies who produced a transcript entry
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// Entry is one conversational turn
type Entry struct {
	Role Role
	Text string
}

// Transcript is the append-only ordered log of conversational turns forming
// the agent context. Entries are never removed or reordered: later phases ask
// only for what is missing, which requires earlier turns (what the receipt
// already supplied) to stay visible.
type Transcript struct {
	entries []Entry
}

// Append records one entry at the end of the transcript. This is the only
// mutation a transcript supports.
func (t *Transcript) Append(role Role, text string) {
	t.entries = append(t.entries, Entry{Role: role, Text: text})
}

// Len returns the number of entries
func (t *Transcript) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the transcript entries in insertion order
func (t *Transcript) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Render concatenates the transcript in insertion order into the prompt
// context handed to the conversational agent
func (t *Transcript) Render() string {
	var b strings.Builder
	for _, e := range t.entries {
		fmt.Fprintf(&b, "[%s] %s\n", e.Role, e.Text)
	}
	return b.String()
}
