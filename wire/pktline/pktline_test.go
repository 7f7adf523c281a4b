package pktline_test

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/dvcs-go/dvcs/wire/pktline"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, pktline.WriteString(&buf, "hello"))
	require.NoError(t, pktline.WriteString(&buf, "world"))
	require.NoError(t, pktline.WriteFlush(&buf))

	r := bufio.NewReader(&buf)
	lines, err := pktline.ReadAll(r)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Equal(t, "hello\n", string(lines[0]))
	require.Equal(t, "world\n", string(lines[1]))
}

func TestWriteString_ExactLength(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, pktline.WriteString(&buf, "ab"))
	// "ab\n" is 3 bytes, + 4 byte length prefix = 7 = 0x0007.
	require.Equal(t, "0007ab\n", buf.String())
}

func TestRead_FlushPacket(t *testing.T) {
	t.Parallel()
	r := bufio.NewReader(strings.NewReader(pktline.Flush))
	content, ok, err := pktline.Read(r)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, content)
}

func TestWriteBytes_RejectsOversizedContent(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	big := bytes.Repeat([]byte{'x'}, pktline.MaxLength)
	err := pktline.WriteBytes(&buf, big)
	require.Error(t, err)
}
