package ircd

import (
	"github.com/horgh/irc"

	"github.com/relaycore/ircd/internal/casefold"
)

func cmdAway(s *Server, c *Client, m irc.Message) {
	if !requireRegistered(s, c) {
		return
	}

	if len(m.Params) < 1 || m.Params[0] == "" {
		c.clear(FlagAway)
		c.AwayMessage = ""
		s.numeric(c, RPL_UNAWAY, ":You are no longer marked as being away")
		return
	}

	c.set(FlagAway)
	c.AwayMessage = m.Params[0]
	s.numeric(c, RPL_NOWAWAY, ":You have been marked as being away")
}

func cmdOper(s *Server, c *Client, m irc.Message) {
	if !requireRegistered(s, c) {
		return
	}
	if len(m.Params) < 2 {
		s.numeric(c, ERR_NEEDMOREPARAMS, "OPER :Not enough parameters")
		return
	}

	op := s.Config.Auth.FindOperator(m.Params[0], m.Params[1], c.Host)
	if op == nil {
		s.numeric(c, ERR_NOOPERHOST, ":No O-lines for your host")
		return
	}

	if !c.has(FlagOperator) {
		s.operCount++
	}
	c.set(FlagOperator)
	s.numeric(c, RPL_YOUREOPER, ":You are now an IRC operator")
}

func cmdKill(s *Server, c *Client, m irc.Message) {
	if !requireRegistered(s, c) {
		return
	}
	if !c.has(FlagOperator) {
		s.numeric(c, ERR_NOPRIVILEGES, ":Permission Denied- You're not an IRC operator")
		return
	}
	if len(m.Params) < 1 {
		s.numeric(c, ERR_NEEDMOREPARAMS, "KILL :Not enough parameters")
		return
	}

	victim, ok := s.nicks[casefold.Fold(m.Params[0])]
	if !ok {
		s.numeric(c, ERR_NOSUCHNICK, m.Params[0]+" :No such nick/channel")
		return
	}

	reason := "Killed"
	if len(m.Params) > 1 {
		reason = m.Params[1]
	}
	s.quitClient(victim, "Killed by "+c.Nick+" ("+reason+")")
}

func cmdPing(s *Server, c *Client, m irc.Message) {
	arg := s.Config.ServerName
	if len(m.Params) > 0 {
		arg = m.Params[0]
	}
	s.sendFrom(c, s.Config.ServerName, "PONG", s.Config.ServerName, ":"+arg)
}

func cmdPong(s *Server, c *Client, m irc.Message) {
	// Activity tracking (lastActivity/pingMissed reset) already happened
	// in handleMessage before dispatch; no semantic validation required.
}

func cmdQuit(s *Server, c *Client, m irc.Message) {
	reason := "Quit"
	if len(m.Params) > 0 && m.Params[0] != "" {
		reason = m.Params[0]
	}
	s.quitClient(c, reason)
}

func cmdError(s *Server, c *Client, m irc.Message) {
	s.quitClient(c, "Error")
}
