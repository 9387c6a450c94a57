package authz

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sample = `
# connection classes
Y:users:120:300:100:4096
Y:opers:120:300:5:8192

I:*@127.0.0.1::*@*.example.com::users
I:*@192.168.*::*@192.168.*:secret:opers

O:*@*.example.com:oppass:root::opers

K:badhost.example.com:0000-2359:*
`

func TestParseClasses(t *testing.T) {
	tables, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, tables.Classes, 2)
	require.Equal(t, 100, tables.Classes["users"].MaxLinks)
	require.Equal(t, 120*time.Second, tables.Classes["users"].PingFreq)
}

func TestAuthorizeAdmitsMatchingAllow(t *testing.T) {
	tables, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	result := tables.Authorize("anyone", "1.2.3.4", "host.example.com", "", time.Now())
	require.True(t, result.Admitted)
	require.Equal(t, "users", result.Class.ID)
}

func TestAuthorizeRejectsWrongPassword(t *testing.T) {
	tables, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	result := tables.Authorize("anyone", "192.168.1.1", "nohost", "wrong", time.Now())
	require.False(t, result.Admitted)
	require.Equal(t, "password", result.Reason)
}

func TestAuthorizeRejectsBannedHost(t *testing.T) {
	tables, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	result := tables.Authorize("anyone", "1.2.3.4", "badhost.example.com", "", time.Now())
	require.False(t, result.Admitted)
	require.Equal(t, "banned", result.Reason)
}

func TestAuthorizeRejectsNoMatchingAllow(t *testing.T) {
	tables, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	result := tables.Authorize("anyone", "10.0.0.1", "unmatched.net", "", time.Now())
	require.False(t, result.Admitted)
	require.Equal(t, "", result.Reason)
}

func TestAuthorizeEnforcesMaxLinks(t *testing.T) {
	tables, err := Parse(strings.NewReader(`
Y:tiny:120:300:1:4096
I:*@*::*@*:secret:tiny
`))
	require.NoError(t, err)

	first := tables.Authorize("a", "1.1.1.1", "h", "secret", time.Now())
	require.True(t, first.Admitted)

	second := tables.Authorize("b", "2.2.2.2", "h", "secret", time.Now())
	require.False(t, second.Admitted)

	tables.Release(first.Class)
	third := tables.Authorize("c", "3.3.3.3", "h", "secret", time.Now())
	require.True(t, third.Admitted)
}

func TestBanActiveRespectsWindow(t *testing.T) {
	ban := &Ban{Host: "*", User: "*", StartMinute: 9 * 60, EndMinute: 17 * 60}
	require.True(t, ban.Active(time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)))
	require.False(t, ban.Active(time.Date(2020, 1, 1, 20, 0, 0, 0, time.UTC)))
}

func TestFindOperator(t *testing.T) {
	tables, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	op := tables.FindOperator("root", "oppass", "shell.example.com")
	require.NotNil(t, op)
	require.Equal(t, "opers", op.ClassID)

	require.Nil(t, tables.FindOperator("root", "wrong", "shell.example.com"))
	require.Nil(t, tables.FindOperator("nobody", "oppass", "shell.example.com"))
}

func TestParseRejectsUnknownDirective(t *testing.T) {
	_, err := Parse(strings.NewReader("Z:bogus\n"))
	require.Error(t, err)
}

func TestParseSkipsCommentsAndBlankLines(t *testing.T) {
	tables, err := Parse(strings.NewReader("\n# comment\n\nY:a:1:1:1:1\n"))
	require.NoError(t, err)
	require.Len(t, tables.Classes, 1)
}
