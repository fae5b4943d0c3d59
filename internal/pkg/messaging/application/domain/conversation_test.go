package messaging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParticipantKeyOrderIndependent(t *testing.T) {
	require.Equal(t, ParticipantKey("u1", "u2"), ParticipantKey("u2", "u1"))
	require.NotEqual(t, ParticipantKey("u1", "u2"), ParticipantKey("u1", "u3"))
}

func TestHasParticipant(t *testing.T) {
	c := &Conversation{Participants: []string{"u1", "u2"}}
	require.True(t, c.HasParticipant("u1"))
	require.True(t, c.HasParticipant("u2"))
	require.False(t, c.HasParticipant("u3"))

	var nilConv *Conversation
	require.False(t, nilConv.HasParticipant("u1"))
}

func TestOtherParticipant(t *testing.T) {
	c := &Conversation{Participants: []string{"u1", "u2"}}
	require.Equal(t, "u2", c.OtherParticipant("u1"))
	require.Equal(t, "u1", c.OtherParticipant("u2"))
}
