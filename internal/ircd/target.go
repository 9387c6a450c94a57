package ircd

import (
	"strings"

	"github.com/relaycore/ircd/internal/casefold"
)

// Target is one parsed element of a comma-separated destination list
// (a JOIN/PART channel list, or a PRIVMSG/NOTICE recipient list). Per
// spec section 4.1 it carries all four slots regardless of kind;
// handlers read whichever is meaningful for the syntax they accept.
type Target struct {
	Raw     string
	Nick    string
	User    string
	Host    string
	Mask    string // server mask, for "$mask" targets
	Channel string // folded channel name, for '#'/'&' targets
}

// IsChannel reports whether this target names a channel.
func (t Target) IsChannel() bool { return t.Channel != "" }

// ParseTargets splits a comma-separated target list and classifies
// each element by its leading character.
func ParseTargets(s string) []Target {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	targets := make([]Target, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		targets = append(targets, parseOneTarget(p))
	}
	return targets
}

func parseOneTarget(s string) Target {
	t := Target{Raw: s}

	switch s[0] {
	case '#', '&':
		t.Channel = foldedChannel(s)
		return t
	case '$':
		t.Mask = s[1:]
		return t
	}

	if idx := strings.IndexByte(s, '@'); idx != -1 {
		t.User = s[:idx]
		t.Host = s[idx+1:]
		return t
	}

	t.Nick = s
	return t
}

func foldedChannel(s string) string { return casefold.Fold(s) }

