package ircd

import (
	"time"

	"github.com/horgh/irc"

	"github.com/relaycore/ircd/internal/casefold"
	"github.com/relaycore/ircd/internal/crypt"
)

func cmdPass(s *Server, c *Client, m irc.Message) {
	if c.Registered() {
		s.numeric(c, ERR_ALREADYREGISTRED, ":You may not reregister")
		return
	}
	if len(m.Params) < 1 {
		s.numeric(c, ERR_NEEDMOREPARAMS, "PASS :Not enough parameters")
		return
	}

	c.Password = m.Params[0]
	c.CryptKey = crypt.Key(c.Password)
	c.set(FlagPass)
}

// validNick reports whether n is a syntactically valid nick: it must
// not start with a digit or '-', and every character must be a digit,
// '-', or fall in the ASCII range 'A'..'~' (which covers upper/lower
// letters and the channel-delimiter punctuation IRC also permits in
// nicks).
func validNick(n string) bool {
	if n == "" {
		return false
	}
	if n[0] >= '0' && n[0] <= '9' {
		return false
	}
	if n[0] == '-' {
		return false
	}
	for i := 0; i < len(n); i++ {
		b := n[i]
		if b == '-' || (b >= '0' && b <= '9') || (b >= 'A' && b <= '~') {
			continue
		}
		return false
	}
	return true
}

func cmdNick(s *Server, c *Client, m irc.Message) {
	if len(m.Params) < 1 || m.Params[0] == "" {
		s.numeric(c, ERR_NONICKNAMEGIVEN, ":No nickname given")
		return
	}

	nick := m.Params[0]
	maxLen := s.Config.MaxNickLength
	if maxLen > 0 && len(nick) > maxLen {
		nick = nick[:maxLen]
	}

	if !validNick(nick) {
		s.numeric(c, ERR_ERRONEUSNICKNAME, nick+" :Erroneous nickname")
		return
	}

	folded := casefold.Fold(nick)
	if existing, taken := s.nicks[folded]; taken && existing.ID != c.ID {
		s.numeric(c, ERR_NICKNAMEINUSE, nick+" :Nickname is already in use")
		return
	}

	wasNicked := c.has(FlagNick)
	oldNick := c.Nick
	oldPrefix := c.Prefix()

	if wasNicked && c.Registered() {
		// A change on an already-registered client: snapshot then
		// broadcast to every socket sharing a channel, per spec section
		// 4.3.
		s.history.Add(HistoryEntry{
			Nick: oldNick, User: c.User, Host: c.Host, RealName: c.RealName,
			When: time.Now(),
		})

		delete(s.nicks, casefold.Fold(oldNick))
		c.Nick = nick
		s.nicks[folded] = c

		notified := map[uint64]bool{c.ID: true}
		s.sendFrom(c, oldPrefix, "NICK", ":"+nick)
		for _, ch := range c.Channels {
			for _, mem := range ch.Members {
				if notified[mem.Client.ID] {
					continue
				}
				notified[mem.Client.ID] = true
				s.sendFrom(mem.Client, oldPrefix, "NICK", ":"+nick)
			}

			if mem, ok := ch.Members[casefold.Fold(oldNick)]; ok {
				delete(ch.Members, casefold.Fold(oldNick))
				ch.Members[folded] = mem
			}
		}
		return
	}

	c.Nick = nick
	c.set(FlagNick)
	s.maybeCompleteRegistration(c)
}

func cmdUser(s *Server, c *Client, m irc.Message) {
	if c.Registered() {
		s.numeric(c, ERR_ALREADYREGISTRED, ":You may not reregister")
		return
	}
	if len(m.Params) < 4 {
		s.numeric(c, ERR_NEEDMOREPARAMS, "USER :Not enough parameters")
		return
	}

	c.suppliedUser = m.Params[0]
	c.RealName = m.Params[3]
	c.set(FlagUser)

	s.maybeCompleteRegistration(c)
}

// finalizeIdentity applies the ident and DNS lookup results (or their
// fallbacks) to User and Host, once both lookups have finished and
// USER has been seen. Idempotent.
func (c *Client) finalizeIdentity() {
	if !c.has(FlagUser) || !c.has(FlagIdentDone) || !c.has(FlagDNSDone) {
		return
	}
	if c.User == "" {
		if c.has(FlagIdent) {
			// handleIdentResult already set c.User to the ident-supplied
			// name on success.
		} else {
			c.User = "~" + c.suppliedUser
		}
	}
	if c.Host == "" {
		c.Host = c.remoteIP
	}
}

// maybeCompleteRegistration runs once NICK and USER have both been
// seen, the ident and DNS co-server lookups have both completed (or
// failed), and, if the server requires one, PASS too: it authorizes
// against K- and I-lines and, on success, sends the welcome burst.
func (s *Server) maybeCompleteRegistration(c *Client) {
	if c.Registered() {
		return
	}
	if !c.has(FlagNick) || !c.has(FlagUser) {
		return
	}
	if !c.has(FlagIdentDone) || !c.has(FlagDNSDone) {
		return
	}
	c.finalizeIdentity()
	if s.Config.ServerPassword != "" {
		if !c.has(FlagPass) {
			return
		}
		if c.Password != s.Config.ServerPassword {
			s.numeric(c, ERR_PASSWDMISMATCH, ":Password incorrect")
			s.quitClient(c, "Bad password")
			return
		}
	}

	result := s.Config.Auth.Authorize(trimTilde(c.User), c.remoteIP, c.Host, c.Password, time.Now())
	if !result.Admitted {
		switch result.Reason {
		case "banned":
			s.numeric(c, ERR_YOUREBANNEDCREEP, ":You are banned from this server")
		case "password":
			s.numeric(c, ERR_PASSWDMISMATCH, ":Password incorrect")
		default:
			s.numeric(c, ERR_YOUREBANNEDCREEP, ":You are not authorized to connect to this server")
		}
		s.quitClient(c, "Authorization failed")
		return
	}

	c.Class = result.Class
	c.set(FlagRegistered)
	s.nicks[casefold.Fold(c.Nick)] = c

	s.sendWelcome(c)
}

func trimTilde(user string) string {
	if len(user) > 0 && user[0] == '~' {
		return user[1:]
	}
	return user
}

func (s *Server) sendWelcome(c *Client) {
	cfg := s.Config

	s.numeric(c, RPL_WELCOME, ":Welcome to the Internet Relay Chat, "+c.Nick+" !")
	s.numeric(c, RPL_YOURHOST, ":Your host is "+cfg.ServerName+", running version "+cfg.Version)
	s.messageFromServer(c, "*** Your host is "+cfg.ServerName+", running version "+cfg.Version)
	s.numeric(c, RPL_CREATED, ":This server was created "+s.Created.Format(time.RFC1123))
	s.numeric(c, RPL_MYINFO, cfg.ServerName+" "+cfg.Version+" iswo opsitnmlbvk")

	cmdLusers(s, c, irc.Message{Command: "LUSERS"})
	cmdMotd(s, c, irc.Message{Command: "MOTD"})
}
