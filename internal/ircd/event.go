package ircd

import (
	"net"

	"github.com/horgh/irc"
)

// EventType discriminates the union of things the event loop reacts
// to. Every mutation of shared state (the nick and channel registries)
// happens on the event loop goroutine in response to one of these.
type EventType int

const (
	// EventNewClient is raised once per accepted TCP connection.
	EventNewClient EventType = iota
	// EventMessage is raised once per parsed line from a client.
	EventMessage
	// EventDeadClient is raised when a client's reader or writer
	// goroutine hits an I/O error or EOF.
	EventDeadClient
	// EventIdentResult is raised when an ident lookup completes
	// (successfully or not).
	EventIdentResult
	// EventDNSResult is raised when a reverse DNS lookup completes.
	EventDNSResult
	// EventTick drives the idle/ping watchdog sweep.
	EventTick
	// EventShutdown asks the event loop to exit.
	EventShutdown
)

// Event is the single message type flowing through the server's event
// channel.
type Event struct {
	Type    EventType
	Client  *Client
	Message irc.Message
	Conn    net.Conn

	IdentUser string
	DNSHost   string
	OK        bool
}
