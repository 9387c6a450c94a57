package ircd

import (
	"strconv"
	"strings"
	"time"

	"github.com/horgh/irc"

	"github.com/relaycore/ircd/internal/casefold"
)

func cmdWho(s *Server, c *Client, m irc.Message) {
	if !requireRegistered(s, c) {
		return
	}

	mask := "*"
	if len(m.Params) > 0 && m.Params[0] != "" {
		mask = m.Params[0]
	}
	opersOnly := len(m.Params) > 1 && m.Params[1] == "o"

	matchedChannel := false
	for _, ch := range s.channels {
		if !casefold.Match(mask, ch.Name) {
			continue
		}
		matchedChannel = true
		_, requesterIsMember := ch.Members[casefold.Fold(c.Nick)]
		for _, mem := range ch.Members {
			if ch.Secret && !requesterIsMember {
				continue
			}
			if opersOnly && !mem.Client.has(FlagOperator) {
				continue
			}
			s.sendWhoReply(c, ch.Name, mem)
		}
	}

	if !matchedChannel {
		for _, client := range s.nicks {
			if !casefold.Match(mask, client.Nick) {
				continue
			}
			if opersOnly && !client.has(FlagOperator) {
				continue
			}
			s.sendWhoReply(c, "*", &Member{Client: client})
		}
	}

	s.numeric(c, RPL_ENDOFWHO, mask+" :End of /WHO list")
}

func (s *Server) sendWhoReply(c *Client, channel string, mem *Member) {
	flags := "H"
	if mem.Client.has(FlagAway) {
		flags = "G"
	}
	if mem.Client.has(FlagOperator) {
		flags += "*"
	}
	if mem.Op {
		flags += "@"
	} else if mem.Voice {
		flags += "+"
	}

	s.numeric(c, RPL_WHOREPLY, channel+" "+mem.Client.User+" "+mem.Client.Host+" "+
		s.Config.ServerName+" "+mem.Client.Nick+" "+flags+" :0 "+mem.Client.RealName)
}

func cmdWhois(s *Server, c *Client, m irc.Message) {
	if !requireRegistered(s, c) {
		return
	}
	if len(m.Params) < 1 {
		s.numeric(c, ERR_NEEDMOREPARAMS, "WHOIS :Not enough parameters")
		return
	}

	mask := m.Params[len(m.Params)-1]

	found := false
	for _, target := range s.nicks {
		if !casefold.Match(mask, target.Nick) {
			continue
		}
		if target.has(FlagInvisible) && target.ID != c.ID && !shareChannel(c, target) {
			continue
		}
		found = true
		s.sendWhoisReplies(c, target)
	}

	if !found {
		s.numeric(c, ERR_NOSUCHNICK, mask+" :No such nick/channel")
	}
	s.numeric(c, RPL_ENDOFWHOIS, mask+" :End of /WHOIS list")
}

func shareChannel(a, b *Client) bool {
	for name := range a.Channels {
		if _, ok := b.Channels[name]; ok {
			return true
		}
	}
	return false
}

func (s *Server) sendWhoisReplies(c *Client, target *Client) {
	s.numeric(c, RPL_WHOISUSER, target.Nick+" "+target.User+" "+target.Host+" * :"+target.RealName)
	s.numeric(c, RPL_WHOISSERVER, target.Nick+" "+s.Config.ServerName+" :"+s.Config.ServerInfo)

	if target.has(FlagOperator) {
		s.numeric(c, RPL_WHOISOPERATOR, target.Nick+" :is an IRC operator")
	}

	idle := time.Since(target.lastActivity) / time.Second
	s.numeric(c, RPL_WHOISIDLE, target.Nick+" "+strconv.FormatInt(int64(idle), 10)+" "+
		strconv.FormatInt(target.SignOnTime.Unix(), 10)+" :seconds idle, signon time")

	var channels []string
	for _, ch := range target.Channels {
		mem := ch.Members[casefold.Fold(target.Nick)]
		prefix := ""
		if mem != nil && mem.Op {
			prefix = "@"
		} else if mem != nil && mem.Voice {
			prefix = "+"
		}
		channels = append(channels, prefix+ch.Name)
	}
	if len(channels) > 0 {
		s.numeric(c, RPL_WHOISCHANNELS, target.Nick+" :"+strings.Join(channels, " "))
	}
}

func cmdWhowas(s *Server, c *Client, m irc.Message) {
	if !requireRegistered(s, c) {
		return
	}
	if len(m.Params) < 1 {
		s.numeric(c, ERR_NEEDMOREPARAMS, "WHOWAS :Not enough parameters")
		return
	}

	count := 0
	if len(m.Params) > 1 {
		if n, err := strconv.Atoi(m.Params[1]); err == nil {
			count = n
		}
	}

	entries := s.history.Lookup(m.Params[0], count)
	if len(entries) == 0 {
		s.numeric(c, ERR_WASNOSUCHNICK, m.Params[0]+" :There was no such nickname")
		s.numeric(c, RPL_ENDOFWHOWAS, m.Params[0]+" :End of WHOWAS")
		return
	}

	for _, e := range entries {
		s.numeric(c, "314", e.Nick+" "+e.User+" "+e.Host+" * :"+e.RealName)
	}
	s.numeric(c, RPL_ENDOFWHOWAS, m.Params[0]+" :End of WHOWAS")
}

func cmdNames(s *Server, c *Client, m irc.Message) {
	if !requireRegistered(s, c) {
		return
	}

	if len(m.Params) < 1 {
		for _, ch := range s.channels {
			if s.channelVisible(c, ch) {
				s.sendNames(c, ch)
			}
		}
		return
	}

	for _, name := range strings.Split(m.Params[0], ",") {
		ch, ok := s.channels[casefold.Fold(name)]
		if !ok {
			continue
		}
		if s.channelVisible(c, ch) {
			s.sendNames(c, ch)
		}
	}
}

func (s *Server) channelVisible(c *Client, ch *Channel) bool {
	if !ch.Secret {
		return true
	}
	_, member := ch.Members[casefold.Fold(c.Nick)]
	return member
}

func cmdList(s *Server, c *Client, m irc.Message) {
	if !requireRegistered(s, c) {
		return
	}

	s.numeric(c, RPL_LISTSTART, "Channel :Users Name")
	for _, ch := range s.channels {
		if ch.Secret {
			_, member := ch.Members[casefold.Fold(c.Nick)]
			if !member {
				continue
			}
		}
		if ch.Private {
			continue
		}
		s.numeric(c, RPL_LIST, ch.Name+" "+strconv.Itoa(len(ch.Members))+" :"+ch.Topic)
	}
	s.numeric(c, RPL_LISTEND, ":End of /LIST")
}

func cmdLusers(s *Server, c *Client, m irc.Message) {
	registered := len(s.nicks)
	opers := s.operCount

	s.numeric(c, RPL_LUSERCLIENT, ":There are "+strconv.Itoa(registered)+" users and "+
		strconv.Itoa(s.invisibleCount)+" invisible on 1 server")
	s.numeric(c, RPL_LUSEROP, strconv.Itoa(opers)+" :operator(s) online")
	s.numeric(c, RPL_LUSERCHANNELS, strconv.Itoa(len(s.channels))+" :channels formed")
	s.numeric(c, RPL_LUSERME, ":I have "+strconv.Itoa(registered)+" clients and 1 server")
}

// cmdStats implements the STATS sub-letters the reference irc-event-3.c
// declares but leaves as no-op stubs. i/k/o/y dump the corresponding
// authorization table (k/o gated on operator status); l/c/n report
// nothing since this core tracks no server links.
func cmdStats(s *Server, c *Client, m irc.Message) {
	if !requireRegistered(s, c) {
		return
	}

	letter := "l"
	if len(m.Params) > 0 && m.Params[0] != "" {
		letter = m.Params[0]
	}

	switch letter {
	case "u":
		uptime := time.Since(s.Created)
		s.numeric(c, RPL_STATSUPTIME, ":Server Up "+uptime.Truncate(time.Second).String())
	case "i":
		for _, a := range s.Config.Auth.Allows {
			s.numeric(c, RPL_STATSILINE, "I "+a.UserA+"@"+a.IP+" "+a.UserB+"@"+a.Host+" "+a.ClassID)
		}
	case "k":
		if !c.has(FlagOperator) {
			s.numeric(c, ERR_NOPRIVILEGES, ":Permission Denied- You're not an IRC operator")
			break
		}
		for _, b := range s.Config.Auth.Bans {
			s.numeric(c, RPL_STATSKLINE, "K "+b.Host+" "+b.User)
		}
	case "o":
		if !c.has(FlagOperator) {
			s.numeric(c, ERR_NOPRIVILEGES, ":Permission Denied- You're not an IRC operator")
			break
		}
		for _, o := range s.Config.Auth.Operators {
			s.numeric(c, RPL_STATSOLINE, "O "+o.User+"@"+o.Host+" "+o.Nick+" "+o.ClassID)
		}
	case "y":
		for _, class := range s.Config.Auth.Classes {
			s.numeric(c, RPL_STATSYLINE, "Y "+class.ID+" "+
				strconv.FormatInt(int64(class.PingFreq/time.Second), 10)+" "+
				strconv.FormatInt(int64(class.ConnectFreq/time.Second), 10)+" "+
				strconv.Itoa(class.MaxLinks)+" "+strconv.Itoa(class.SendQueueSize))
		}
	case "l", "c", "n":
		// No link/connect-line/server-name data is tracked without
		// server-to-server linking (spec section 9 open question 1).
	}

	s.numeric(c, RPL_ENDOFSTATS, letter+" :End of /STATS report")
}

func cmdAdmin(s *Server, c *Client, m irc.Message) {
	if !requireRegistered(s, c) {
		return
	}
	if !serverArgMatchesSelf(s, m) {
		s.numeric(c, ERR_NOSUCHSERVER, serverArg(m)+" :No such server")
		return
	}
	s.numeric(c, RPL_ADMINME, s.Config.ServerName+" :Administrative info")
	s.numeric(c, RPL_ADMINLOC1, ":"+s.Config.AdminInfo)
	s.numeric(c, RPL_ADMINEMAIL, ":"+s.Config.AdminInfo)
}

func cmdTime(s *Server, c *Client, m irc.Message) {
	if !requireRegistered(s, c) {
		return
	}
	if !serverArgMatchesSelf(s, m) {
		s.numeric(c, ERR_NOSUCHSERVER, serverArg(m)+" :No such server")
		return
	}
	s.numeric(c, RPL_TIME, s.Config.ServerName+" :"+time.Now().Format(time.RFC1123))
}

func cmdVersion(s *Server, c *Client, m irc.Message) {
	if !requireRegistered(s, c) {
		return
	}
	if !serverArgMatchesSelf(s, m) {
		s.numeric(c, ERR_NOSUCHSERVER, serverArg(m)+" :No such server")
		return
	}
	s.numeric(c, RPL_VERSION, s.Config.Version+" "+s.Config.ServerName+" :"+s.Config.ServerInfo)
}

func serverArg(m irc.Message) string {
	if len(m.Params) > 0 {
		return m.Params[0]
	}
	return ""
}

func serverArgMatchesSelf(s *Server, m irc.Message) bool {
	arg := serverArg(m)
	return arg == "" || casefold.Equal(arg, s.Config.ServerName)
}

func cmdMotd(s *Server, c *Client, m irc.Message) {
	if len(s.motd) == 0 {
		s.numeric(c, ERR_NOMOTD, ":MOTD File is missing")
		return
	}

	s.numeric(c, RPL_MOTDSTART, ":- "+s.Config.ServerName+" Message of the day -")
	for _, line := range s.motd {
		s.numeric(c, RPL_MOTD, ":- "+line)
	}
	s.numeric(c, RPL_ENDOFMOTD, ":End of /MOTD command")
}

func cmdIson(s *Server, c *Client, m irc.Message) {
	if !requireRegistered(s, c) {
		return
	}

	var online []string
	for _, nick := range m.Params {
		for _, n := range strings.Fields(nick) {
			if target, ok := s.nicks[casefold.Fold(n)]; ok {
				online = append(online, target.Nick)
			}
		}
	}
	s.numeric(c, RPL_ISON, ":"+strings.Join(online, " "))
}

func cmdUserhost(s *Server, c *Client, m irc.Message) {
	if !requireRegistered(s, c) {
		return
	}

	var replies []string
	for _, nick := range m.Params {
		target, ok := s.nicks[casefold.Fold(nick)]
		if !ok {
			continue
		}
		away := "+"
		if target.has(FlagAway) {
			away = "-"
		}
		op := ""
		if target.has(FlagOperator) {
			op = "*"
		}
		replies = append(replies, target.Nick+op+"="+away+target.User+"@"+target.Host)
	}
	s.numeric(c, RPL_USERHOST, ":"+strings.Join(replies, " "))
}
