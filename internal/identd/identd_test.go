package identd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseIdentReply(t *testing.T) {
	user, err := parseIdentReply("6193, 113 : USERID : UNIX : stjohns\r\n")
	require.NoError(t, err)
	require.Equal(t, "stjohns", user)
}

func TestParseIdentReplyError(t *testing.T) {
	_, err := parseIdentReply("6193, 113 : ERROR : NO-USER\r\n")
	require.Error(t, err)
}

func TestParseIdentReplyMalformed(t *testing.T) {
	_, err := parseIdentReply("garbage")
	require.Error(t, err)
}

func TestNullResolverAlwaysFails(t *testing.T) {
	var r Resolver = NullResolver{}
	_, err := r.LookupIdent(context.Background(), nil, nil)
	require.Error(t, err)
	_, err = r.LookupHost(context.Background(), nil)
	require.Error(t, err)
}
