// Package config loads the server's key=value main configuration file
// (the same format and loader the teacher server uses for its own
// config) along with the auth-config file consumed by internal/authz
// and the server's MOTD file.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/horgh/config"
	"github.com/pkg/errors"

	"github.com/relaycore/ircd/internal/authz"
)

// Config holds a server's full configuration.
type Config struct {
	ListenHost string
	ListenPort string
	ServerName string
	ServerInfo string
	Version    string
	AdminInfo  string

	MaxNickLength   int
	MaxChannelLen   int
	MaxChannels     int
	MaxClients      int

	// WakeupTime bounds how long the event loop sleeps between idle
	// sweeps.
	WakeupTime time.Duration
	// PingTime is how long a client may be idle before we send it a
	// PING.
	PingTime time.Duration
	// DeadTime is how long a client may stay unresponsive after a PING
	// before we disconnect it.
	DeadTime time.Duration

	MOTDPath string

	// ServerPassword, if set, must match a connecting client's PASS
	// before registration can complete. Optional.
	ServerPassword string

	Auth *authz.Tables
}

// Load reads the key=value file at path and the auth-config file it
// references.
func Load(path string) (*Config, error) {
	configMap, err := config.ReadStringMap(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}

	requiredKeys := []string{
		"listen-host",
		"listen-port",
		"server-name",
		"server-info",
		"version",
		"admin-info",
		"max-nick-length",
		"max-channel-length",
		"max-channels",
		"max-clients",
		"wakeup-time",
		"ping-time",
		"dead-time",
		"motd",
		"auth-config",
	}
	for _, key := range requiredKeys {
		v, exists := configMap[key]
		if !exists {
			return nil, fmt.Errorf("missing required key: %s", key)
		}
		if len(v) == 0 {
			return nil, fmt.Errorf("configuration value is blank: %s", key)
		}
	}

	c := &Config{
		ListenHost: configMap["listen-host"],
		ListenPort: configMap["listen-port"],
		ServerName: configMap["server-name"],
		ServerInfo: configMap["server-info"],
		Version:        configMap["version"],
		AdminInfo:      configMap["admin-info"],
		MOTDPath:       configMap["motd"],
		ServerPassword: configMap["server-password"],
	}

	if c.MaxNickLength, err = atoi(configMap, "max-nick-length"); err != nil {
		return nil, err
	}
	if c.MaxChannelLen, err = atoi(configMap, "max-channel-length"); err != nil {
		return nil, err
	}
	if c.MaxChannels, err = atoi(configMap, "max-channels"); err != nil {
		return nil, err
	}
	if c.MaxClients, err = atoi(configMap, "max-clients"); err != nil {
		return nil, err
	}

	if c.WakeupTime, err = time.ParseDuration(configMap["wakeup-time"]); err != nil {
		return nil, fmt.Errorf("wakeup-time is in invalid format: %s", err)
	}
	if c.PingTime, err = time.ParseDuration(configMap["ping-time"]); err != nil {
		return nil, fmt.Errorf("ping-time is in invalid format: %s", err)
	}
	if c.DeadTime, err = time.ParseDuration(configMap["dead-time"]); err != nil {
		return nil, fmt.Errorf("dead-time is in invalid format: %s", err)
	}

	c.Auth, err = authz.LoadFile(configMap["auth-config"])
	if err != nil {
		return nil, errors.Wrap(err, "loading auth-config")
	}

	return c, nil
}

func atoi(m map[string]string, key string) (int, error) {
	n, err := strconv.ParseInt(m[key], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s is not a valid integer: %s", key, err)
	}
	return int(n), nil
}

// MaxMOTDLines bounds how much of the MOTD file we hold in memory and
// send, matching the reference server's fixed MOTD buffer.
const MaxMOTDLines = 256

// MaxMOTDLineLength truncates any MOTD line longer than this.
const MaxMOTDLineLength = 80

// LoadMOTD reads up to MaxMOTDLines lines of at most MaxMOTDLineLength
// bytes each from path. A missing file yields an empty MOTD rather
// than an error, since running without one is allowed.
func LoadMOTD(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "opening motd")
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() && len(lines) < MaxMOTDLines {
		line := scanner.Text()
		if len(line) > MaxMOTDLineLength {
			line = line[:MaxMOTDLineLength]
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading motd")
	}

	return lines, nil
}
