package ircd

// registerHandlers builds the command dispatch table. Per the
// REDESIGN FLAGS in the design notes, this replaces a linear command
// scan with a case-folded map lookup; irc.ParseMessage already
// upper-cases the command, so the table is keyed in upper case.
func registerHandlers() map[string]commandHandler {
	return map[string]commandHandler{
		"PASS": cmdPass,
		"NICK": cmdNick,
		"USER": cmdUser,

		"JOIN":   cmdJoin,
		"PART":   cmdPart,
		"KICK":   cmdKick,
		"INVITE": cmdInvite,
		"TOPIC":  cmdTopic,
		"MODE":   cmdMode,

		"PRIVMSG": cmdPrivmsg,
		"NOTICE":  cmdNotice,

		"WHO":      cmdWho,
		"WHOIS":    cmdWhois,
		"WHOWAS":   cmdWhowas,
		"NAMES":    cmdNames,
		"LIST":     cmdList,
		"LUSERS":   cmdLusers,
		"STATS":    cmdStats,
		"ADMIN":    cmdAdmin,
		"TIME":     cmdTime,
		"VERSION":  cmdVersion,
		"MOTD":     cmdMotd,
		"ISON":     cmdIson,
		"USERHOST": cmdUserhost,

		"AWAY": cmdAway,
		"OPER": cmdOper,
		"KILL": cmdKill,

		"PING":  cmdPing,
		"PONG":  cmdPong,
		"QUIT":  cmdQuit,
		"ERROR": cmdError,
	}
}
