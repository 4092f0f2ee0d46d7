package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := Hello{Role: RoleArtifactPusher}

	require.NoError(t, WriteMessage(&buf, in))

	var out Hello
	require.NoError(t, ReadMessage(&buf, &out))
	assert.Equal(t, in, out)
}

func TestReadMessageCleanEOF(t *testing.T) {
	var buf bytes.Buffer
	var out Hello
	err := ReadMessage(&buf, &out)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadMessageTruncatedPrefix(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x00, 0x01})
	var out Hello
	err := ReadMessage(buf, &out)
	require.Error(t, err)
}

func TestReadMessageRejectsOversizedFrame(t *testing.T) {
	var lenPrefix [4]byte
	lenPrefix[0] = 0xFF
	lenPrefix[1] = 0xFF
	lenPrefix[2] = 0xFF
	lenPrefix[3] = 0xFF
	buf := bytes.NewBuffer(lenPrefix[:])
	var out Hello
	err := ReadMessage(buf, &out)
	require.Error(t, err)
}

func TestBrokerToClientExactlyOneVariant(t *testing.T) {
	var buf bytes.Buffer
	in := BrokerToClient{TransferArtifact: &TransferArtifactMsg{Digest: "abc123"}}
	require.NoError(t, WriteMessage(&buf, in))

	var out BrokerToClient
	require.NoError(t, ReadMessage(&buf, &out))
	require.NotNil(t, out.TransferArtifact)
	assert.Equal(t, "abc123", out.TransferArtifact.Digest)
	assert.Nil(t, out.JobResponse)
	assert.Nil(t, out.StatsResponse)
}
