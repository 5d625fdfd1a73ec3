package oauthstate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateIsOneShot(t *testing.T) {
	s := New()

	state := s.Issue(uint(7))
	require.NotEmpty(t, state)

	id, ok := s.ConsumeUserID(state)
	require.True(t, ok)
	require.EqualValues(t, 7, id)

	// a replayed callback finds nothing
	_, ok = s.ConsumeUserID(state)
	require.False(t, ok)
}

func TestUnknownStateIsRejected(t *testing.T) {
	s := New()

	_, ok := s.Consume("never-issued")
	require.False(t, ok)
}

func TestPutKeepsCallerChosenKey(t *testing.T) {
	s := New()

	s.Put("request-token", "request-secret")
	v, ok := s.Consume("request-token")
	require.True(t, ok)
	require.Equal(t, "request-secret", v)
}

func TestStatesAreUnique(t *testing.T) {
	s := New()
	require.NotEqual(t, s.Issue(1), s.Issue(1))
}
