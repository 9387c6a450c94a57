package ircd

import (
	"strconv"
	"strings"
	"time"

	"github.com/horgh/irc"

	"github.com/relaycore/ircd/internal/casefold"
)

func requireRegistered(s *Server, c *Client) bool {
	if !c.Registered() {
		s.numeric(c, ERR_NOTREGISTERED, ":You have not registered")
		return false
	}
	return true
}

func validChannelName(name string) bool {
	if len(name) < 2 {
		return false
	}
	if name[0] != '#' && name[0] != '&' {
		return false
	}
	return !strings.ContainsAny(name, "\x07, ")
}

func cmdJoin(s *Server, c *Client, m irc.Message) {
	if !requireRegistered(s, c) {
		return
	}
	if len(m.Params) < 1 {
		s.numeric(c, ERR_NEEDMOREPARAMS, "JOIN :Not enough parameters")
		return
	}

	names := strings.Split(m.Params[0], ",")
	var keys []string
	if len(m.Params) > 1 {
		keys = strings.Split(m.Params[1], ",")
	}

	for i, name := range names {
		key := ""
		if i < len(keys) {
			key = keys[i]
		}
		s.joinChannel(c, name, key)
	}
}

// defaultMaxChannels and defaultMaxClients are the bounded-array sizes
// spec section 9 names as recommended defaults, used when the config
// leaves the corresponding limit at zero.
const (
	defaultMaxChannels = 32
	defaultMaxClients  = 128
)

func (s *Server) joinChannel(c *Client, name, key string) {
	if !validChannelName(name) {
		s.numeric(c, ERR_NOSUCHCHANNEL, name+" :No such channel")
		return
	}

	folded := casefold.Fold(name)
	foldedNick := casefold.Fold(c.Nick)

	if _, already := c.Channels[folded]; !already {
		maxChannels := s.Config.MaxChannels
		if maxChannels <= 0 {
			maxChannels = defaultMaxChannels
		}
		if len(c.Channels) >= maxChannels {
			s.numeric(c, ERR_TOOMANYCHANNELS, name+" :You have joined too many channels")
			return
		}
	}

	ch, exists := s.channels[folded]
	if exists {
		if ch.Keyed && ch.Key != key {
			s.numeric(c, ERR_BADCHANNELKEY, ch.Name+" :Cannot join channel (+k)")
			return
		}
		if ch.InviteOnly && !ch.Invited[foldedNick] {
			s.numeric(c, ERR_INVITEONLYCHAN, ch.Name+" :Cannot join channel (+i)")
			return
		}
		if ch.Limited && len(ch.Members) >= ch.UserLimit {
			s.numeric(c, ERR_CHANNELISFULL, ch.Name+" :Cannot join channel (+l)")
			return
		}
		maxClients := s.Config.MaxClients
		if maxClients <= 0 {
			maxClients = defaultMaxClients
		}
		if len(ch.Members) >= maxClients {
			s.numeric(c, ERR_CHANNELISFULL, ch.Name+" :Cannot join channel (full)")
			return
		}
		if channelBansMatch(ch, c) {
			s.numeric(c, ERR_BANNEDFROMCHAN, ch.Name+" :Cannot join channel (+b)")
			return
		}

		delete(ch.Invited, foldedNick)
		ch.Members[foldedNick] = &Member{Client: c}
	} else {
		ch = &Channel{
			Name:    name,
			Creator: c.Nick,
			Since:   time.Now(),
			Members: map[string]*Member{},
			Invited: map[string]bool{},
		}
		ch.Members[foldedNick] = &Member{Client: c, Op: true}
		s.channels[folded] = ch
	}

	c.Channels[folded] = ch

	for _, mem := range ch.Members {
		s.sendFrom(mem.Client, c.Prefix(), "JOIN", ":"+ch.Name)
	}

	if ch.Topic == "" {
		s.numeric(c, RPL_NOTOPIC, ch.Name+" :No topic is set")
	} else {
		s.numeric(c, RPL_TOPIC, ch.Name+" :"+ch.Topic)
		s.numeric(c, RPL_TOPICSET, ch.Name+" "+ch.TopicSetter+" "+strconv.FormatInt(ch.TopicSince.Unix(), 10))
	}
	s.numeric(c, RPL_CHANCREATED, ch.Name+" "+strconv.FormatInt(ch.Since.Unix(), 10))

	s.sendNames(c, ch)
}

func channelBansMatch(ch *Channel, c *Client) bool {
	mask := c.Prefix()
	for _, b := range ch.Bans {
		if casefold.Match(b.NickPattern+"!"+b.UserPattern+"@"+b.HostPattern, mask) {
			return true
		}
	}
	return false
}

// sendNames emits the NAMES list and terminator for ch to c.
func (s *Server) sendNames(c *Client, ch *Channel) {
	sym := "="
	if ch.Secret {
		sym = "@"
	} else if ch.Private {
		sym = "*"
	}

	var names []string
	for _, mem := range ch.Members {
		if mem.Client.has(FlagInvisible) && mem.Client.ID != c.ID && !shareChannel(c, mem.Client) {
			continue
		}
		prefix := ""
		if mem.Op {
			prefix = "@"
		} else if mem.Voice {
			prefix = "+"
		}
		names = append(names, prefix+mem.Client.Nick)
	}

	s.numeric(c, RPL_NAMREPLY, sym+" "+ch.Name+" :"+strings.Join(names, " "))
	s.numeric(c, RPL_ENDOFNAMES, ch.Name+" :End of /NAMES list")
}

func cmdPart(s *Server, c *Client, m irc.Message) {
	if !requireRegistered(s, c) {
		return
	}
	if len(m.Params) < 1 {
		s.numeric(c, ERR_NEEDMOREPARAMS, "PART :Not enough parameters")
		return
	}

	reason := c.Nick
	if len(m.Params) > 1 && m.Params[1] != "" {
		reason = m.Params[1]
	}

	for _, name := range strings.Split(m.Params[0], ",") {
		folded := casefold.Fold(name)
		ch, ok := s.channels[folded]
		if !ok {
			s.numeric(c, ERR_NOSUCHCHANNEL, name+" :No such channel")
			continue
		}
		if _, member := ch.Members[casefold.Fold(c.Nick)]; !member {
			s.numeric(c, ERR_NOTONCHANNEL, ch.Name+" :You're not on that channel")
			continue
		}

		for _, mem := range ch.Members {
			s.sendFrom(mem.Client, c.Prefix(), "PART", ch.Name, ":"+reason)
		}
		s.removeMember(ch, c)
	}
}

func cmdKick(s *Server, c *Client, m irc.Message) {
	if !requireRegistered(s, c) {
		return
	}
	if len(m.Params) < 2 {
		s.numeric(c, ERR_NEEDMOREPARAMS, "KICK :Not enough parameters")
		return
	}

	chanName, victimNick := m.Params[0], m.Params[1]
	comment := c.Nick
	if len(m.Params) > 2 {
		comment = m.Params[2]
	}

	ch, ok := s.channels[casefold.Fold(chanName)]
	if !ok {
		s.numeric(c, ERR_NOSUCHCHANNEL, chanName+" :No such channel")
		return
	}
	kicker, isMember := ch.Members[casefold.Fold(c.Nick)]
	if !isMember {
		s.numeric(c, ERR_NOTONCHANNEL, ch.Name+" :You're not on that channel")
		return
	}
	if !kicker.Op {
		s.numeric(c, ERR_CHANOPRIVSNEEDED, ch.Name+" :You're not channel operator")
		return
	}

	victimMember, ok := ch.Members[casefold.Fold(victimNick)]
	if !ok {
		s.numeric(c, ERR_USERNOTINCHANNEL, victimNick+" "+ch.Name+" :They aren't on that channel")
		return
	}

	for _, mem := range ch.Members {
		s.sendFrom(mem.Client, c.Prefix(), "KICK", ch.Name, victimMember.Client.Nick, ":"+comment)
	}
	s.removeMember(ch, victimMember.Client)
}

func cmdInvite(s *Server, c *Client, m irc.Message) {
	if !requireRegistered(s, c) {
		return
	}
	if len(m.Params) < 2 {
		s.numeric(c, ERR_NEEDMOREPARAMS, "INVITE :Not enough parameters")
		return
	}

	nick, chanName := m.Params[0], m.Params[1]

	ch, ok := s.channels[casefold.Fold(chanName)]
	if !ok {
		s.numeric(c, ERR_NOSUCHCHANNEL, chanName+" :No such channel")
		return
	}
	inviter, isMember := ch.Members[casefold.Fold(c.Nick)]
	if !isMember {
		s.numeric(c, ERR_NOTONCHANNEL, ch.Name+" :You're not on that channel")
		return
	}
	if !inviter.Op {
		s.numeric(c, ERR_CHANOPRIVSNEEDED, ch.Name+" :You're not channel operator")
		return
	}

	target, ok := s.nicks[casefold.Fold(nick)]
	if !ok {
		s.numeric(c, ERR_NOSUCHNICK, nick+" :No such nick/channel")
		return
	}
	if _, already := ch.Members[casefold.Fold(nick)]; already {
		s.numeric(c, ERR_USERONCHANNEL, nick+" "+ch.Name+" :is already on channel")
		return
	}

	if target.has(FlagAway) {
		s.numeric(c, RPL_AWAY, target.Nick+" :"+target.AwayMessage)
		return
	}

	ch.Invited[casefold.Fold(nick)] = true
	s.sendFrom(target, c.Prefix(), "INVITE", nick, ":"+ch.Name)
}

func cmdTopic(s *Server, c *Client, m irc.Message) {
	if !requireRegistered(s, c) {
		return
	}
	if len(m.Params) < 1 {
		s.numeric(c, ERR_NEEDMOREPARAMS, "TOPIC :Not enough parameters")
		return
	}

	ch, ok := s.channels[casefold.Fold(m.Params[0])]
	if !ok {
		s.numeric(c, ERR_NOSUCHCHANNEL, m.Params[0]+" :No such channel")
		return
	}
	member, isMember := ch.Members[casefold.Fold(c.Nick)]
	if !isMember {
		s.numeric(c, ERR_NOTONCHANNEL, ch.Name+" :You're not on that channel")
		return
	}

	if len(m.Params) < 2 {
		if ch.Topic == "" {
			s.numeric(c, RPL_NOTOPIC, ch.Name+" :No topic is set")
		} else {
			s.numeric(c, RPL_TOPIC, ch.Name+" :"+ch.Topic)
		}
		return
	}

	if ch.TopicOpOnly && !member.Op {
		s.numeric(c, ERR_CHANOPRIVSNEEDED, ch.Name+" :You're not channel operator")
		return
	}

	ch.Topic = m.Params[1]
	ch.TopicSetter = c.Nick
	ch.TopicSince = time.Now()

	for _, mem := range ch.Members {
		s.sendFrom(mem.Client, c.Prefix(), "TOPIC", ch.Name, ":"+ch.Topic)
	}
}
