// Package ircd implements the client-facing core of an RFC 1459 IRC
// server: registration, channel and client registries, command
// dispatch, messaging, and the idle/ping watchdog.
package ircd

import (
	"context"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/horgh/irc"

	"github.com/relaycore/ircd/internal/config"
	"github.com/relaycore/ircd/internal/identd"
)

// ioWait bounds a single Read/Write call on a client connection. It is
// unrelated to PingTime: the watchdog, not the socket deadline,
// decides when a quiet client gets cut off.
const ioWait = 10 * time.Minute

type commandHandler func(s *Server, c *Client, m irc.Message)

// Server owns the two global registries (nicks and channels) and
// drives a single event loop goroutine that is the only writer of
// either. All other goroutines (one reader and one writer per
// connection, the watchdog ticker, and DNS/ident lookups) communicate
// with it exclusively via the events channel.
type Server struct {
	Config  *config.Config
	Identd  identd.Resolver
	Created time.Time

	listener net.Listener
	events   chan Event

	nextID uint64

	clients  map[uint64]*Client
	nicks    map[string]*Client
	channels map[string]*Channel
	history  *History
	handlers map[string]commandHandler

	motd []string

	// Ready, if non-nil, receives the listener's address once Run has
	// bound it. Tests use this to find the ephemeral port when
	// ListenPort is "0".
	Ready chan string

	invisibleCount int
	operCount      int

	shuttingDown int32
	wg           sync.WaitGroup
}

// NewServer constructs a Server ready to Run.
func NewServer(cfg *config.Config, resolver identd.Resolver) *Server {
	s := &Server{
		Config:   cfg,
		Identd:   resolver,
		Created:  time.Now(),
		events:   make(chan Event, 64),
		clients:  map[uint64]*Client{},
		nicks:    map[string]*Client{},
		channels: map[string]*Channel{},
		history:  NewHistory(),
	}
	s.handlers = registerHandlers()

	motd, err := config.LoadMOTD(cfg.MOTDPath)
	if err != nil {
		log.Printf("unable to load motd: %s", err)
	}
	s.motd = motd

	return s
}

// Run listens on the configured address and drives the server until
// ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(s.Config.ListenHost, s.Config.ListenPort))
	if err != nil {
		return err
	}
	s.listener = ln

	if s.Ready != nil {
		s.Ready <- ln.Addr().String()
	}

	s.wg.Add(1)
	go s.acceptLoop()

	s.wg.Add(1)
	go s.watchdogLoop(ctx)

	log.Printf("listening on %s", ln.Addr())

	s.eventLoop(ctx)

	atomic.StoreInt32(&s.shuttingDown, 1)
	_ = s.listener.Close()
	s.wg.Wait()

	return nil
}

func (s *Server) isShuttingDown() bool {
	return atomic.LoadInt32(&s.shuttingDown) == 1
}

func (s *Server) newEvent(e Event) {
	if s.isShuttingDown() {
		return
	}
	s.events <- e
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isShuttingDown() {
				return
			}
			log.Printf("accept error: %s", err)
			continue
		}
		s.newEvent(Event{Type: EventNewClient, Conn: conn})
	}
}

// eventLoop is the sole goroutine that reads or writes s.nicks,
// s.channels, or s.clients. It returns when ctx is cancelled or an
// EventShutdown is received.
func (s *Server) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-s.events:
			switch e.Type {
			case EventShutdown:
				return
			case EventNewClient:
				s.handleNewClient(e.Conn)
			case EventMessage:
				s.handleMessage(e.Client, e.Message)
			case EventDeadClient:
				s.handleDeadClient(e.Client, "Connection reset by peer")
			case EventIdentResult:
				s.handleIdentResult(e.Client, e.IdentUser, e.OK)
			case EventDNSResult:
				s.handleDNSResult(e.Client, e.DNSHost, e.OK)
			case EventTick:
				s.checkWatchdog()
			}
		}
	}
}

func (s *Server) handleNewClient(conn net.Conn) {
	s.nextID++
	id := s.nextID

	tcpAddr, _ := conn.RemoteAddr().(*net.TCPAddr)
	remoteIP := conn.RemoteAddr().String()
	if tcpAddr != nil {
		remoteIP = tcpAddr.IP.String()
	}

	now := time.Now()
	c := &Client{
		ID:           id,
		Conn:         NewConn(conn, ioWait),
		WriteChan:    make(chan writeRequest, 32),
		User:         "",
		Host:         remoteIP,
		remoteIP:     remoteIP,
		SignOnTime:   now,
		lastActivity: now,
		lastPing:     now,
		Channels:     map[string]*Channel{},
	}
	s.clients[id] = c

	s.wg.Add(2)
	go s.readLoop(c)
	go s.writeLoop(c)

	go s.resolveIdentAndDNS(c, conn.LocalAddr(), conn.RemoteAddr())
}

func (s *Server) readLoop(c *Client) {
	defer s.wg.Done()

	for {
		if s.isShuttingDown() {
			return
		}

		message, err := c.Conn.ReadMessage()
		if err != nil {
			s.newEvent(Event{Type: EventDeadClient, Client: c})
			return
		}

		s.newEvent(Event{Type: EventMessage, Client: c, Message: message})
	}
}

func (s *Server) writeLoop(c *Client) {
	defer s.wg.Done()

	for req := range c.WriteChan {
		if err := c.Conn.WriteLine(req.line); err != nil {
			s.newEvent(Event{Type: EventDeadClient, Client: c})
			return
		}
	}
}

func (s *Server) resolveIdentAndDNS(c *Client, localAddr, remoteAddr net.Addr) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := s.Identd.LookupIdent(ctx, localAddr, remoteAddr)
	s.newEvent(Event{Type: EventIdentResult, Client: c, IdentUser: user, OK: err == nil})

	host, err := s.Identd.LookupHost(ctx, remoteAddr)
	s.newEvent(Event{Type: EventDNSResult, Client: c, DNSHost: host, OK: err == nil})
}

func (s *Server) handleIdentResult(c *Client, user string, ok bool) {
	if _, live := s.clients[c.ID]; !live {
		return
	}
	if ok && user != "" {
		c.User = user
		c.set(FlagIdent)
	}
	c.set(FlagIdentDone)
	s.maybeCompleteRegistration(c)
}

func (s *Server) handleDNSResult(c *Client, host string, ok bool) {
	if _, live := s.clients[c.ID]; !live {
		return
	}
	if ok && host != "" {
		c.Host = host
		c.set(FlagDNS)
	}
	c.set(FlagDNSDone)
	s.maybeCompleteRegistration(c)
}

func (s *Server) handleMessage(c *Client, m irc.Message) {
	if _, live := s.clients[c.ID]; !live {
		return
	}

	c.lastActivity = time.Now()
	c.pingMissed = 0

	if m.Command == "" {
		s.numeric(c, ERR_UNKNOWNCOMMAND, "* :Unknown command")
		return
	}

	handler, ok := s.handlers[m.Command]
	if !ok {
		s.numeric(c, ERR_UNKNOWNCOMMAND, m.Command+" :Unknown command")
		return
	}

	handler(s, c, m)
}

func (s *Server) handleDeadClient(c *Client, reason string) {
	if _, live := s.clients[c.ID]; !live {
		return
	}
	s.quitClient(c, reason)
}

// quitClient performs the full cancellation sequence from spec section
// 5: fan QUIT to every channel the client shares, remove it from each
// (destroying any that become empty), release its I-line class slot,
// snapshot it to history, and close its socket.
func (s *Server) quitClient(c *Client, reason string) {
	notified := map[uint64]bool{}

	if c.Registered() {
		for _, ch := range c.Channels {
			for _, m := range ch.Members {
				if m.Client.ID == c.ID || notified[m.Client.ID] {
					continue
				}
				notified[m.Client.ID] = true
				s.sendFrom(m.Client, c.Prefix(), "QUIT", ":"+reason)
			}
		}

		for _, ch := range c.Channels {
			s.removeMember(ch, c)
		}

		if c.has(FlagInvisible) {
			s.invisibleCount--
		}
		if c.has(FlagOperator) {
			s.operCount--
		}

		s.history.Add(HistoryEntry{
			Nick: c.Nick, User: c.User, Host: c.Host, RealName: c.RealName,
			When: time.Now(),
		})

		delete(s.nicks, foldedChannel(c.Nick))
	}

	if c.Class != nil {
		s.Config.Auth.Release(c.Class)
	}

	delete(s.clients, c.ID)
	close(c.WriteChan)
	_ = c.Conn.Close()
}

// removeMember takes c out of ch's member list, destroying ch if it
// becomes empty, and drops the non-owning back-reference on c.
func (s *Server) removeMember(ch *Channel, c *Client) {
	folded := foldedChannel(ch.Name)
	delete(ch.Members, foldedChannel(c.Nick))
	delete(c.Channels, folded)
	if len(ch.Members) == 0 {
		delete(s.channels, folded)
	}
}

// sendFrom delivers a user-origin message to c.
func (s *Server) sendFrom(c *Client, prefix, command string, params ...string) {
	s.send(c, irc.Message{Prefix: prefix, Command: command, Params: params})
}

// numeric sends a server numeric reply to c. args is the raw
// space-joined remainder after the client's nick, following the
// convention the rest of this package's handlers use to keep call
// sites short; the line is enqueued as is, without passing through the
// wire encoder, so callers must pre-format any trailing ':' themselves.
func (s *Server) numeric(c *Client, code string, rest string) {
	nick := c.Nick
	if nick == "" {
		nick = "*"
	}
	s.enqueue(c, ":"+s.Config.ServerName+" "+code+" "+nick+" "+rest+"\r\n")
}

func (s *Server) send(c *Client, m irc.Message) {
	line, err := m.Encode()
	if err != nil && err != irc.ErrTruncated {
		return
	}
	s.enqueue(c, line)
}

func (s *Server) enqueue(c *Client, line string) {
	select {
	case c.WriteChan <- writeRequest{line: line}:
	default:
		// Send buffer full: the client is not draining. Treat like any
		// other dead connection rather than blocking the event loop.
		go func() { s.newEvent(Event{Type: EventDeadClient, Client: c}) }()
	}
}

// messageFromServer sends a server NOTICE-style advisory line.
func (s *Server) messageFromServer(c *Client, text string) {
	s.sendFrom(c, s.Config.ServerName, "NOTICE", c.nickOrStar(), text)
}

func (c *Client) nickOrStar() string {
	if c.Nick == "" {
		return "*"
	}
	return c.Nick
}
