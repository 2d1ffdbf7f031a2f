// Package frame parses and encodes the colon-tagged text frames exchanged over
// a chat connection.
//
// Inbound text is classified in a fixed priority order, first match wins:
//
//	GET_USERS                          literal control token
//	PRESENCE:<name>                    presence announcement
//	PRIVATE:<sender>:<target>:<body>   direct message
//	PUBLIC:<sender>:<body>             general-room message
//	<name> joined the chat             legacy join announcement
//	USERS:<csv>                        roster (server to client)
//	anything else                      untagged free text
//
// Bodies may contain colons, so PRIVATE and PUBLIC split on their leading
// delimiters only and keep the remainder intact.
package frame

import (
	"errors"
	"regexp"
	"strings"
)

// Kind discriminates the closed set of frame variants.
type Kind int

const (
	KindUntagged Kind = iota
	KindGetUsers
	KindUsers
	KindPresence
	KindPrivate
	KindPublic
	KindJoin
)

const (
	tokenGetUsers  = "GET_USERS"
	prefixUsers    = "USERS:"
	prefixPresence = "PRESENCE:"
	prefixPrivate  = "PRIVATE:"
	prefixPublic   = "PUBLIC:"
	joinPhrase     = "joined the chat"
	fallbackPrefix = "User says: "
)

// ErrMalformed is returned for a tagged frame whose fields could not be fully
// parsed under its declared tag.
var ErrMalformed = errors.New("frame: malformed")

var joinPattern = regexp.MustCompile(`^(.+?)\s+joined`)

func (k Kind) String() string {
	switch k {
	case KindGetUsers:
		return "get_users"
	case KindUsers:
		return "users"
	case KindPresence:
		return "presence"
	case KindPrivate:
		return "private"
	case KindPublic:
		return "public"
	case KindJoin:
		return "join"
	default:
		return "untagged"
	}
}

// Frame is one decoded text message. Only the fields relevant to Kind are set.
type Frame struct {
	Kind   Kind
	Sender string
	Target string
	Body   string
	Users  []string
}

// Parse classifies raw and extracts its fields.
func Parse(raw string) (Frame, error) {
	switch {
	case raw == tokenGetUsers:
		return Frame{Kind: KindGetUsers}, nil

	case strings.HasPrefix(raw, prefixPresence):
		// An empty name is still a presence frame; it just names no one.
		return Frame{Kind: KindPresence, Sender: strings.TrimPrefix(raw, prefixPresence)}, nil

	case strings.HasPrefix(raw, prefixPrivate):
		parts := strings.SplitN(raw, ":", 4)
		if len(parts) < 4 {
			return Frame{}, ErrMalformed
		}
		return Frame{Kind: KindPrivate, Sender: parts[1], Target: parts[2], Body: parts[3]}, nil

	case strings.HasPrefix(raw, prefixPublic):
		parts := strings.SplitN(raw, ":", 3)
		if len(parts) < 3 {
			return Frame{}, ErrMalformed
		}
		return Frame{Kind: KindPublic, Sender: parts[1], Body: parts[2]}, nil

	case strings.Contains(raw, joinPhrase):
		// Sender stays empty when the phrase has no leading name.
		f := Frame{Kind: KindJoin, Body: raw}
		if m := joinPattern.FindStringSubmatch(raw); m != nil {
			f.Sender = m[1]
		}
		return f, nil

	case strings.HasPrefix(raw, prefixUsers):
		return Frame{Kind: KindUsers, Users: splitUsers(strings.TrimPrefix(raw, prefixUsers))}, nil
	}

	return Frame{Kind: KindUntagged, Body: raw}, nil
}

// Encode renders f back into its wire text. For every frame produced by Parse,
// Encode returns the original input.
func Encode(f Frame) string {
	switch f.Kind {
	case KindGetUsers:
		return tokenGetUsers
	case KindUsers:
		return prefixUsers + strings.Join(f.Users, ",")
	case KindPresence:
		return prefixPresence + f.Sender
	case KindPrivate:
		return prefixPrivate + f.Sender + ":" + f.Target + ":" + f.Body
	case KindPublic:
		return prefixPublic + f.Sender + ":" + f.Body
	default:
		return f.Body
	}
}

// Users builds a roster frame.
func Users(identities []string) Frame {
	return Frame{Kind: KindUsers, Users: identities}
}

// Presence builds a presence announcement for identity.
func Presence(identity string) Frame {
	return Frame{Kind: KindPresence, Sender: identity}
}

// Private builds a direct message frame.
func Private(sender, target, body string) Frame {
	return Frame{Kind: KindPrivate, Sender: sender, Target: target, Body: body}
}

// Public builds a general-room message frame.
func Public(sender, body string) Frame {
	return Frame{Kind: KindPublic, Sender: sender, Body: body}
}

// Join builds the legacy "<name> joined the chat" announcement.
func Join(identity string) Frame {
	return Frame{Kind: KindJoin, Sender: identity, Body: identity + " " + joinPhrase}
}

// Fallback wraps unrecognized free text for rebroadcast.
func Fallback(text string) Frame {
	return Frame{Kind: KindUntagged, Body: fallbackPrefix + text}
}

func splitUsers(csv string) []string {
	if csv == "" {
		return []string{}
	}
	return strings.Split(csv, ",")
}
