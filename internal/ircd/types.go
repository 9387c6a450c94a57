package ircd

import (
	"time"

	"github.com/relaycore/ircd/internal/authz"
)

// ClientFlags is the bitset described in the data model: registration
// progress and user modes share one word, the way the reference
// server packs them into a single flags field.
type ClientFlags uint16

const (
	FlagInvisible ClientFlags = 1 << iota
	FlagServerNotice
	FlagWallops
	FlagOperator
	FlagAway
	FlagPass
	FlagNick
	FlagUser
	FlagIdent
	FlagDNS
	FlagIdentDone
	FlagDNSDone
	FlagRegistered
)

func (c *Client) has(f ClientFlags) bool { return c.Flags&f != 0 }
func (c *Client) set(f ClientFlags)      { c.Flags |= f }
func (c *Client) clear(f ClientFlags)    { c.Flags &^= f }

// Client holds state for a single connection, from TCP-accept through
// registration to eventual QUIT. Only registered clients are reachable
// by nick lookup; a provisional client is known only to its own
// goroutines and the event loop by ID.
type Client struct {
	ID   uint64
	Conn *Conn

	WriteChan chan writeRequest

	Nick     string
	User     string
	Host     string
	RealName string
	Password string
	CryptKey byte

	// suppliedUser is the username argument from USER, held until the
	// ident lookup finishes so the ~ prefix can be applied correctly.
	suppliedUser string

	Flags       ClientFlags
	AwayMessage string
	SignOnTime  time.Time

	lastActivity time.Time
	lastPing     time.Time
	pingMissed   int

	// Channels this client belongs to, keyed by folded channel name.
	// Non-owning: the channel is the source of truth for membership.
	Channels map[string]*Channel

	Class *authz.Class

	remoteIP string
}

// RemoteIP returns the dotted/textual remote address, used as the
// fallback host before DNS resolves (or when it never does).
func (c *Client) RemoteIP() string { return c.remoteIP }

// Prefix renders the nick!user@host form used as a message prefix.
func (c *Client) Prefix() string {
	return c.Nick + "!" + c.User + "@" + c.Host
}

// Registered reports whether the client has completed the PASS/NICK/
// USER handshake and passed authorization.
func (c *Client) Registered() bool { return c.has(FlagRegistered) }

type writeRequest struct {
	line string
}

// Member records a client's per-channel mode flags.
type Member struct {
	Client  *Client
	Op      bool
	Voice   bool
}

// Channel holds one channel's membership, topic, and policy state.
// It exists only while it has at least one member.
type Channel struct {
	Name        string
	Topic       string
	TopicSetter string
	TopicSince  time.Time
	Creator     string
	Since       time.Time

	Private     bool
	Secret      bool
	InviteOnly  bool
	TopicOpOnly bool
	NoExternal  bool
	Moderated   bool

	UserLimit int // valid iff limited
	Limited   bool
	Key       string // valid iff keyed
	Keyed     bool

	Members map[string]*Member // keyed by folded nick
	Bans    []*Ban
	Invited map[string]bool // folded nick -> invited
}

// Ban is a channel ban mask, nick!user@host with glob wildcards.
type Ban struct {
	NickPattern string
	UserPattern string
	HostPattern string
	SetBy       string
	Since       time.Time
}

// HistoryEntry is a WHOWAS snapshot.
type HistoryEntry struct {
	Nick     string
	User     string
	Host     string
	RealName string
	When     time.Time
}
