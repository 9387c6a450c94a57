package ircd

import (
	"strconv"
	"strings"
	"time"

	"github.com/horgh/irc"

	"github.com/relaycore/ircd/internal/casefold"
)

func cmdMode(s *Server, c *Client, m irc.Message) {
	if !requireRegistered(s, c) {
		return
	}
	if len(m.Params) < 1 {
		s.numeric(c, ERR_NEEDMOREPARAMS, "MODE :Not enough parameters")
		return
	}

	target := m.Params[0]
	if target[0] == '#' || target[0] == '&' {
		s.channelMode(c, m)
		return
	}
	s.userMode(c, m)
}

func (s *Server) channelMode(c *Client, m irc.Message) {
	ch, ok := s.channels[casefold.Fold(m.Params[0])]
	if !ok {
		s.numeric(c, ERR_NOSUCHCHANNEL, m.Params[0]+" :No such channel")
		return
	}

	if len(m.Params) < 2 {
		s.numeric(c, RPL_CHANNELMODEIS, ch.Name+" "+channelModeString(ch))
		return
	}

	self, isMember := ch.Members[casefold.Fold(c.Nick)]

	argIndex := 2
	nextArg := func() (string, bool) {
		if argIndex >= len(m.Params) {
			return "", false
		}
		a := m.Params[argIndex]
		argIndex++
		return a, true
	}

	sign := true
	bansListed := false

	for _, r := range m.Params[1] {
		switch r {
		case '+':
			sign = true
			continue
		case '-':
			sign = false
			continue
		}

		switch r {
		case 'o', 'v':
			nick, hasArg := nextArg()
			if !hasArg {
				s.numeric(c, ERR_NEEDMOREPARAMS, "MODE :Not enough parameters")
				continue
			}
			if !isMember || !self.Op {
				s.numeric(c, ERR_CHANOPRIVSNEEDED, ch.Name+" :You're not channel operator")
				continue
			}
			mem, ok := ch.Members[casefold.Fold(nick)]
			if !ok {
				s.numeric(c, ERR_USERNOTINCHANNEL, nick+" "+ch.Name+" :They aren't on that channel")
				continue
			}
			if r == 'o' {
				mem.Op = sign
			} else {
				mem.Voice = sign
			}
			s.fanMode(c, ch, sign, r, nick)

		case 'p', 's', 'i', 't', 'n', 'm':
			if !isMember || !self.Op {
				s.numeric(c, ERR_CHANOPRIVSNEEDED, ch.Name+" :You're not channel operator")
				continue
			}
			switch r {
			case 'p':
				ch.Private = sign
			case 's':
				ch.Secret = sign
			case 'i':
				ch.InviteOnly = sign
			case 't':
				ch.TopicOpOnly = sign
			case 'n':
				ch.NoExternal = sign
			case 'm':
				ch.Moderated = sign
			}
			s.fanMode(c, ch, sign, r, "")

		case 'l':
			if !isMember || !self.Op {
				s.numeric(c, ERR_CHANOPRIVSNEEDED, ch.Name+" :You're not channel operator")
				continue
			}
			if !sign {
				ch.Limited = false
				ch.UserLimit = 0
				s.fanMode(c, ch, sign, r, "")
				continue
			}
			limitStr, hasArg := nextArg()
			if !hasArg {
				s.numeric(c, ERR_NEEDMOREPARAMS, "MODE :Not enough parameters")
				continue
			}
			limit, err := strconv.Atoi(limitStr)
			if err != nil || limit < 0 {
				continue
			}
			ch.Limited = true
			ch.UserLimit = limit
			s.fanMode(c, ch, sign, r, limitStr)

		case 'k':
			if !isMember || !self.Op {
				s.numeric(c, ERR_CHANOPRIVSNEEDED, ch.Name+" :You're not channel operator")
				continue
			}
			if !sign {
				ch.Keyed = false
				ch.Key = ""
				s.fanMode(c, ch, sign, r, "")
				continue
			}
			key, hasArg := nextArg()
			if !hasArg {
				s.numeric(c, ERR_NEEDMOREPARAMS, "MODE :Not enough parameters")
				continue
			}
			if ch.Keyed {
				s.numeric(c, ERR_KEYSET, ch.Name+" :Channel key already set")
				continue
			}
			ch.Keyed = true
			ch.Key = key
			s.fanMode(c, ch, sign, r, key)

		case 'b':
			arg, hasArg := nextArg()
			if !hasArg {
				if !bansListed {
					bansListed = true
					s.listBans(c, ch)
				}
				continue
			}
			if !isMember || !self.Op {
				s.numeric(c, ERR_CHANOPRIVSNEEDED, ch.Name+" :You're not channel operator")
				continue
			}
			nickP, userP, hostP := parseBanMask(arg)
			if sign {
				ch.Bans = append(ch.Bans, &Ban{
					NickPattern: nickP, UserPattern: userP, HostPattern: hostP,
					SetBy: c.Nick, Since: time.Now(),
				})
			} else {
				removeBan(ch, nickP, userP, hostP)
			}
			s.fanMode(c, ch, sign, r, arg)

		default:
			s.numeric(c, ERR_UNKNOWNMODE, string(r)+" :is unknown mode char to me")
		}
	}
}

func (s *Server) fanMode(c *Client, ch *Channel, sign bool, letter rune, arg string) {
	signChar := "+"
	if !sign {
		signChar = "-"
	}
	params := []string{ch.Name, signChar + string(letter)}
	if arg != "" {
		params = append(params, arg)
	}
	for _, mem := range ch.Members {
		s.sendFrom(mem.Client, c.Prefix(), "MODE", params...)
	}
}

func (s *Server) listBans(c *Client, ch *Channel) {
	for _, b := range ch.Bans {
		s.numeric(c, RPL_BANLIST, ch.Name+" "+b.NickPattern+"!"+b.UserPattern+"@"+b.HostPattern+" "+b.SetBy)
	}
	s.numeric(c, RPL_ENDOFBANLIST, ch.Name+" :End of Channel Ban List")
}

func parseBanMask(mask string) (nick, user, host string) {
	nick, user, host = "*", "*", "*"

	rest := mask
	if idx := strings.IndexByte(rest, '!'); idx != -1 {
		if rest[:idx] != "" {
			nick = rest[:idx]
		}
		rest = rest[idx+1:]
	} else if !strings.Contains(rest, "@") {
		nick = rest
		return
	}

	if idx := strings.IndexByte(rest, '@'); idx != -1 {
		if rest[:idx] != "" {
			user = rest[:idx]
		}
		if rest[idx+1:] != "" {
			host = rest[idx+1:]
		}
	}

	return
}

func removeBan(ch *Channel, nick, user, host string) {
	for i, b := range ch.Bans {
		if b.NickPattern == nick && b.UserPattern == user && b.HostPattern == host {
			ch.Bans = append(ch.Bans[:i], ch.Bans[i+1:]...)
			return
		}
	}
}

func channelModeString(ch *Channel) string {
	var sb strings.Builder
	sb.WriteByte('+')
	if ch.Private {
		sb.WriteByte('p')
	}
	if ch.Secret {
		sb.WriteByte('s')
	}
	if ch.InviteOnly {
		sb.WriteByte('i')
	}
	if ch.TopicOpOnly {
		sb.WriteByte('t')
	}
	if ch.NoExternal {
		sb.WriteByte('n')
	}
	if ch.Moderated {
		sb.WriteByte('m')
	}
	out := sb.String()
	if ch.Limited {
		out += "l " + strconv.Itoa(ch.UserLimit)
	}
	if ch.Keyed {
		out += "k " + ch.Key
	}
	return out
}

func (s *Server) userMode(c *Client, m irc.Message) {
	if casefold.Fold(m.Params[0]) != casefold.Fold(c.Nick) {
		s.numeric(c, ERR_USERSDONTMATCH, ":Cannot change mode for other users")
		return
	}
	if len(m.Params) < 2 {
		return
	}

	sign := true
	for _, r := range m.Params[1] {
		switch r {
		case '+':
			sign = true
		case '-':
			sign = false
		case 'i':
			s.setInvisible(c, sign)
		case 'w':
			setFlag(c, FlagWallops, sign)
		case 's':
			setFlag(c, FlagServerNotice, sign)
		case 'o':
			if !sign {
				if c.has(FlagOperator) {
					s.operCount--
				}
				c.clear(FlagOperator)
			}
			// Setting +o via MODE is silently ignored: operator status is
			// only granted by OPER.
		default:
			s.numeric(c, ERR_UMODEUNKNOWNFLAG, ":Unknown MODE flag")
		}
	}
}

func setFlag(c *Client, f ClientFlags, on bool) {
	if on {
		c.set(f)
	} else {
		c.clear(f)
	}
}

func (s *Server) setInvisible(c *Client, on bool) {
	if on == c.has(FlagInvisible) {
		return
	}
	if on {
		s.invisibleCount++
	} else {
		s.invisibleCount--
	}
	setFlag(c, FlagInvisible, on)
}
