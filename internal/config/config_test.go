package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	authPath := writeFile(t, dir, "auth.conf", "Y:users:120:300:10:4096\nI:*@*::*@*::users\n")
	motdPath := writeFile(t, dir, "motd.txt", "welcome\n")

	mainPath := writeFile(t, dir, "ircd.conf", ""+
		"listen-host = 0.0.0.0\n"+
		"listen-port = 6667\n"+
		"server-name = irc.example.net\n"+
		"server-info = example IRC server\n"+
		"version = relaycore-1\n"+
		"admin-info = admin@example.net\n"+
		"max-nick-length = 9\n"+
		"max-channel-length = 50\n"+
		"max-channels = 10\n"+
		"max-clients = 1000\n"+
		"wakeup-time = 5s\n"+
		"ping-time = 90s\n"+
		"dead-time = 180s\n"+
		"motd = "+motdPath+"\n"+
		"auth-config = "+authPath+"\n")

	c, err := Load(mainPath)
	require.NoError(t, err)
	require.Equal(t, "6667", c.ListenPort)
	require.Equal(t, 9, c.MaxNickLength)
	require.NotNil(t, c.Auth)
	require.Len(t, c.Auth.Classes, 1)
}

func TestLoadMissingRequiredKey(t *testing.T) {
	dir := t.TempDir()
	mainPath := writeFile(t, dir, "ircd.conf", "listen-port = 6667\n")
	_, err := Load(mainPath)
	require.Error(t, err)
}

func TestLoadMOTD(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "motd.txt", "line one\nline two\n")
	lines, err := LoadMOTD(path)
	require.NoError(t, err)
	require.Equal(t, []string{"line one", "line two"}, lines)
}

func TestLoadMOTDMissingFile(t *testing.T) {
	lines, err := LoadMOTD("/nonexistent/path/to/motd")
	require.NoError(t, err)
	require.Nil(t, lines)
}

func TestLoadMOTDTruncatesLongLines(t *testing.T) {
	dir := t.TempDir()
	long := ""
	for i := 0; i < 200; i++ {
		long += "x"
	}
	path := writeFile(t, dir, "motd.txt", long+"\n")
	lines, err := LoadMOTD(path)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Len(t, lines[0], MaxMOTDLineLength)
}
