package quote

import "strings"

// defaultLastActive is the zero timestamp the platform reports for a user it
// has never seen active.
const defaultLastActive = "1/1/0001 12:00:00 AM"

// Broadcaster identifies the channel owner for implicit target resolution.
type Broadcaster struct {
	Identity string
	ID       string
}

// Mention is the platform-detected mention target and the metadata used to
// decide whether the detection is trustworthy.
type Mention struct {
	Identity     string
	DisplayName  string
	ID           string
	Platform     string
	IsFollowing  bool
	IsModerator  bool
	LastActiveAt string
}

// trusted reports whether the platform's mention detection is believable: a
// user with no follow, no mod status, and a default last-active timestamp is
// likely a false positive from a display-name lookup.
func (m Mention) trusted() bool {
	if m.IsFollowing || m.IsModerator {
		return true
	}
	return m.LastActiveAt != "" && m.LastActiveAt != defaultLastActive
}

// ResolvedTarget is the transient result of splitting raw input into a
// quote's speaker and its content. Operator is "^" for an explicit character
// name, "@" for an explicit mention, or empty for implicit resolution.
type ResolvedTarget struct {
	Target   *string
	TargetID *string
	Operator string
	Content  string
}

// ResolveTarget decides, from free-form trailing text, who a quote is
// attributed to and what the quote content is.
//
// The first word of a multi-word input is a candidate target. A leading "^"
// marks it an explicit character name; a leading "@" substitutes the
// platform-detected mention regardless of the word's own text. With no
// operator the candidate is matched against the broadcaster's aliases first,
// then against the trusted mention; otherwise it is folded back into the
// content and the whole input is the quote text.
func ResolveTarget(raw string, broadcasterAliases []string, b Broadcaster, m Mention) ResolvedTarget {
	if strings.TrimSpace(raw) == "" {
		return ResolvedTarget{Content: raw}
	}
	words := strings.Split(raw, " ")
	if len(words) < 2 {
		return ResolvedTarget{Content: raw}
	}
	candidate := words[0]
	rest := strings.Join(words[1:], " ")
	if candidate == "" {
		return ResolvedTarget{Content: raw}
	}

	switch candidate[0] {
	case '^':
		// Explicitly a character, never resolved to a platform identity.
		name := candidate[1:]
		return ResolvedTarget{Target: &name, Operator: "^", Content: rest}
	case '@':
		// Explicitly the mentioned user; the platform already resolved who.
		target := m.Identity
		id := m.ID
		return ResolvedTarget{Target: optional(target), TargetID: optional(id), Operator: "@", Content: rest}
	}

	// Alias match takes precedence over mention match.
	for _, alias := range broadcasterAliases {
		if strings.EqualFold(strings.TrimSpace(alias), candidate) && b.Identity != "" {
			return ResolvedTarget{Target: &b.Identity, TargetID: optional(b.ID), Content: rest}
		}
	}

	lc := strings.ToLower(candidate)
	if m.Identity != "" && (lc == strings.ToLower(m.Identity) || lc == strings.ToLower(m.DisplayName)) {
		if m.trusted() {
			return ResolvedTarget{Target: &m.Identity, TargetID: optional(m.ID), Content: rest}
		}
	}

	// Not a target: the candidate word is part of the quote itself.
	return ResolvedTarget{Content: raw}
}
