package ircd

import (
	"github.com/horgh/irc"

	"github.com/relaycore/ircd/internal/casefold"
	"github.com/relaycore/ircd/internal/crypt"
)

func cmdPrivmsg(s *Server, c *Client, m irc.Message) { s.message(c, m, true) }
func cmdNotice(s *Server, c *Client, m irc.Message)  { s.message(c, m, false) }

// message implements the shared PRIVMSG/NOTICE pipeline described in
// spec section 4.5. isPrivmsg controls whether failures produce
// numeric replies, since NOTICE must never do so.
func (s *Server) message(c *Client, m irc.Message, isPrivmsg bool) {
	if !requireRegistered(s, c) {
		return
	}

	if len(m.Params) < 1 {
		if isPrivmsg {
			s.numeric(c, ERR_NORECIPIENT, ":No recipient given")
		}
		return
	}
	if len(m.Params) < 2 || m.Params[1] == "" {
		if isPrivmsg {
			s.numeric(c, ERR_NOTEXTTOSEND, ":No text to send")
		}
		return
	}

	body := m.Params[1]
	command := "NOTICE"
	if isPrivmsg {
		command = "PRIVMSG"
	}

	senderEncrypted := body
	if c.has(FlagPass) {
		senderEncrypted = crypt.Encrypt(body, c.CryptKey)
	}

	for _, target := range ParseTargets(m.Params[0]) {
		switch {
		case target.IsChannel():
			s.deliverToChannel(c, target, command, body, senderEncrypted, isPrivmsg)
		case target.Nick != "":
			s.deliverToNick(c, target.Nick, command, body, senderEncrypted, isPrivmsg)
		default:
			if isPrivmsg {
				s.numeric(c, ERR_NOSUCHNICK, target.Raw+" :No such nick/channel")
			}
		}
	}
}

func (s *Server) deliverToNick(c *Client, nick, command, body, senderEncrypted string, isPrivmsg bool) {
	recipient, ok := s.nicks[casefold.Fold(nick)]
	if !ok {
		if isPrivmsg {
			s.numeric(c, ERR_NOSUCHNICK, nick+" :No such nick/channel")
		}
		return
	}

	if isPrivmsg && recipient.has(FlagAway) {
		s.numeric(c, RPL_AWAY, recipient.Nick+" :"+recipient.AwayMessage)
		return
	}

	s.sendFrom(recipient, c.Prefix(), command, recipient.Nick,
		":"+recipientView(recipient, body, senderEncrypted))
}

func (s *Server) deliverToChannel(c *Client, target Target, command, body, senderEncrypted string, isPrivmsg bool) {
	ch, ok := s.channels[target.Channel]
	if !ok {
		if isPrivmsg {
			s.numeric(c, ERR_NOSUCHNICK, target.Raw+" :No such nick/channel")
		}
		return
	}

	sender, isMember := ch.Members[casefold.Fold(c.Nick)]

	if ch.NoExternal && !isMember {
		if isPrivmsg {
			s.numeric(c, ERR_CANNOTSENDTOCHAN, ch.Name+" :Cannot send to channel.")
		}
		return
	}
	if ch.Moderated && (!isMember || (!sender.Op && !sender.Voice)) {
		if isPrivmsg {
			s.numeric(c, ERR_CANNOTSENDTOCHAN, ch.Name+" :Cannot send to channel.")
		}
		return
	}

	for _, mem := range ch.Members {
		if mem.Client.ID == c.ID {
			continue
		}
		s.sendFrom(mem.Client, c.Prefix(), command, ch.Name,
			":"+recipientView(mem.Client, body, senderEncrypted))
	}
}

// recipientView renders the body as a given recipient should see it
// on the wire: plaintext if the sender never encrypted, otherwise the
// byte-exact reproduction of the reference server's per-recipient
// crypt transform (spec section 4.6 and section 9 open question 3).
func recipientView(recipient *Client, plain, senderEncrypted string) string {
	if senderEncrypted == plain {
		return plain
	}
	if !recipient.has(FlagPass) {
		return plain
	}
	return crypt.Reencrypt(senderEncrypted, recipient.CryptKey)
}
