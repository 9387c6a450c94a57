package ircd_test

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relaycore/ircd/internal/authz"
	"github.com/relaycore/ircd/internal/config"
	"github.com/relaycore/ircd/internal/identd"
	"github.com/relaycore/ircd/internal/ircd"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	auth, err := authz.Parse(strings.NewReader(
		"Y:any:120:300:100:4096\nI:*@*::*@*::any\n"))
	require.NoError(t, err)

	return &config.Config{
		ListenHost:    "127.0.0.1",
		ListenPort:    "0",
		ServerName:    "irc.test",
		ServerInfo:    "a test IRC server",
		Version:       "relaycore-test",
		AdminInfo:     "admin@irc.test",
		MaxNickLength: 9,
		MaxChannelLen: 50,
		MaxChannels:   10,
		MaxClients:    100,
		WakeupTime:    20 * time.Millisecond,
		PingTime:      24 * time.Hour,
		DeadTime:      24 * time.Hour,
		Auth:          auth,
	}
}

type testServer struct {
	server *ircd.Server
	addr   string
	cancel context.CancelFunc
}

func startTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()

	s := ircd.NewServer(cfg, identd.NullResolver{})
	s.Ready = make(chan string, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Run(ctx) }()

	var addr string
	select {
	case addr = <-s.Ready:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not become ready")
	}

	t.Cleanup(cancel)

	return &testServer{server: s, addr: addr, cancel: cancel}
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func (ts *testServer) connect(t *testing.T) *testClient {
	t.Helper()

	conn, err := net.Dial("tcp", ts.addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &testClient{t: t, conn: conn, r: bufio.NewReader(conn)}
}

func (c *testClient) send(line string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetWriteDeadline(time.Now().Add(2*time.Second)))
	_, err := c.conn.Write([]byte(line + "\r\n"))
	require.NoError(c.t, err)
}

func (c *testClient) readLine() string {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := c.r.ReadString('\n')
	require.NoError(c.t, err)
	return strings.TrimRight(line, "\r\n")
}

// expectContains reads one line and requires it contains want.
func (c *testClient) expectContains(want string) string {
	c.t.Helper()
	line := c.readLine()
	require.Contains(c.t, line, want)
	return line
}

func (c *testClient) register(nick string) {
	c.t.Helper()
	c.send("NICK " + nick)
	c.send("USER " + nick + " 0 * :" + nick + " Test")
	c.expectContains(" 001 " + nick + " ")
	c.expectContains(" 002 ")
	c.readLine() // advisory NOTICE
	c.expectContains(" 003 ")
	c.expectContains(" 004 ")
	c.expectContains(" 251 ")
	c.expectContains(" 252 ")
	c.expectContains(" 254 ")
	c.expectContains(" 255 ")
	c.expectContains(" 422 ") // no motd configured in tests
}

func TestRegistration_S1(t *testing.T) {
	ts := startTestServer(t, newTestConfig(t))
	alice := ts.connect(t)

	alice.send("NICK alice")
	alice.send("USER alice 0 * :Alice A")

	require.Contains(t, alice.expectContains(" 001 alice "), "Welcome to the Internet Relay Chat, alice !")
	alice.expectContains(" 002 ")
	alice.expectContains("NOTICE alice")
	alice.expectContains(" 003 ")
	line := alice.expectContains(" 004 ")
	require.Contains(t, line, "opsitnmlbvk")
	alice.expectContains(" 251 ")
	alice.expectContains(" 252 ")
	alice.expectContains(" 254 ")
	alice.expectContains(" 255 ")
	alice.expectContains(" 422 ")
}

func TestChannelCreationAndJoinEcho_S2(t *testing.T) {
	ts := startTestServer(t, newTestConfig(t))
	alice := ts.connect(t)
	alice.register("alice")

	alice.send("JOIN #dev")
	require.Contains(t, alice.expectContains("JOIN"), ":alice!~alice@")
	alice.expectContains(" 331 alice #dev :No topic is set")
	alice.expectContains(" 329 alice #dev ")
	line := alice.expectContains(" 353 alice")
	require.Contains(t, line, "@alice")
	alice.expectContains(" 366 alice #dev :End of /NAMES list")
}

func TestTwoMemberMessage_S3(t *testing.T) {
	ts := startTestServer(t, newTestConfig(t))
	alice := ts.connect(t)
	bob := ts.connect(t)
	alice.register("alice")
	bob.register("bob")

	alice.send("JOIN #dev")
	drainJoinBurst(alice)
	bob.send("JOIN #dev")
	drainJoinBurst(bob)
	// Alice sees bob's join.
	alice.expectContains("JOIN :#dev")

	alice.send("PRIVMSG #dev :hello")

	line := bob.expectContains("PRIVMSG #dev :hello")
	require.Contains(t, line, "alice!~alice@")

	require.NoError(t, alice.conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, err := alice.r.ReadString('\n')
	require.Error(t, err, "alice should not receive her own PRIVMSG")
}

func drainJoinBurst(c *testClient) {
	c.readLine() // JOIN
	c.readLine() // 331/332(+333)
	c.readLine() // 329
	c.readLine() // 353
	c.readLine() // 366
}

func TestModerationEnforcement_S4(t *testing.T) {
	ts := startTestServer(t, newTestConfig(t))
	alice := ts.connect(t)
	bob := ts.connect(t)
	alice.register("alice")
	bob.register("bob")

	alice.send("JOIN #dev")
	drainJoinBurst(alice)
	bob.send("JOIN #dev")
	drainJoinBurst(bob)
	alice.readLine() // alice sees bob's JOIN

	alice.send("MODE #dev +m")
	alice.expectContains("MODE #dev +m")
	bob.expectContains("MODE #dev +m")

	bob.send("PRIVMSG #dev :hi")
	bob.expectContains(" 404 bob #dev :Cannot send to channel.")

	alice.send("MODE #dev +v bob")
	alice.expectContains("MODE #dev +v bob")
	bob.expectContains("MODE #dev +v bob")

	bob.send("PRIVMSG #dev :hi")
	line := alice.expectContains("PRIVMSG #dev :hi")
	require.Contains(t, line, "bob!~bob@")
}

func TestBanAndRejoin_S5(t *testing.T) {
	ts := startTestServer(t, newTestConfig(t))
	alice := ts.connect(t)
	bob := ts.connect(t)
	alice.register("alice")
	bob.register("bob")

	alice.send("JOIN #dev")
	drainJoinBurst(alice)
	bob.send("JOIN #dev")
	drainJoinBurst(bob)
	alice.readLine() // alice sees bob's JOIN

	alice.send("MODE #dev +b *!*@127.0.0.1")
	alice.expectContains("MODE #dev +b *!*@127.0.0.1")
	bob.expectContains("MODE #dev +b *!*@127.0.0.1")

	bob.send("PART #dev")
	bob.expectContains("PART #dev")
	alice.expectContains("PART #dev")

	bob.send("JOIN #dev")
	bob.expectContains(" 474 bob #dev :Cannot join channel (+b)")
}

func TestNickChangePropagation_S6(t *testing.T) {
	ts := startTestServer(t, newTestConfig(t))
	alice := ts.connect(t)
	bob := ts.connect(t)
	carol := ts.connect(t)
	alice.register("alice")
	bob.register("bob")
	carol.register("carol")

	alice.send("JOIN #dev")
	drainJoinBurst(alice)
	bob.send("JOIN #dev")
	drainJoinBurst(bob)
	alice.readLine() // alice sees bob's JOIN

	alice.send("NICK ally")
	require.Contains(t, alice.expectContains("NICK"), ":ally")
	require.Contains(t, bob.expectContains("NICK"), ":ally")

	carol.send("WHOWAS alice")
	require.Contains(t, carol.expectContains("314"), "alice")
	carol.expectContains("369")
}

func TestJoinPartReturnsToEmptyState(t *testing.T) {
	ts := startTestServer(t, newTestConfig(t))
	alice := ts.connect(t)
	alice.register("alice")

	alice.send("JOIN #empty")
	drainJoinBurst(alice)

	alice.send("PART #empty")
	alice.expectContains("PART #empty")

	alice.send("JOIN #empty")
	alice.readLine() // JOIN
	alice.readLine() // 331
	alice.readLine() // 329
	// If the channel had truly been destroyed, alice is the sole member
	// again and gets op, as the NAMES reply shows.
	require.Contains(t, alice.expectContains(" 353 alice"), "@alice")
	alice.readLine() // 366
}

func TestWatchdogPingAndEviction_S7(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.WakeupTime = 20 * time.Millisecond
	cfg.PingTime = 60 * time.Millisecond
	cfg.DeadTime = 60 * time.Millisecond

	ts := startTestServer(t, cfg)
	bob := ts.connect(t)
	carol := ts.connect(t)
	bob.register("bob")
	carol.register("carol")

	bob.send("JOIN #dev")
	drainJoinBurst(bob)
	carol.send("JOIN #dev")
	drainJoinBurst(carol)
	bob.readLine() // bob sees carol's JOIN

	require.Contains(t, bob.expectContains("PING"), ":irc.test")

	// carol is idle too and gets her own PING first; answering it keeps
	// her connected until bob is evicted.
	carol.expectContains("PING")
	carol.send("PONG :irc.test")

	line := carol.readLine()
	if strings.Contains(line, "PING") {
		line = carol.readLine()
	}
	require.Contains(t, line, "QUIT")
	require.Contains(t, line, "bob!~bob@")
}
