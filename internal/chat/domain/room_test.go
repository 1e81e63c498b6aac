package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveRoomID_Commutative(t *testing.T) {
	pairs := [][2]string{
		{"alice", "bob"},
		{"bob", "alice"},
		{"652f1c", "652f1b"},
		{"same", "same"},
		{"Zed", "amy"},
	}
	for _, p := range pairs {
		ab, err := DeriveRoomID(p[0], p[1])
		assert.NoError(t, err)
		ba, err := DeriveRoomID(p[1], p[0])
		assert.NoError(t, err)
		assert.Equal(t, ab, ba)
		assert.NotEmpty(t, ab)
	}
}

func TestDeriveRoomID_Sorted(t *testing.T) {
	id, err := DeriveRoomID("bob", "alice")
	assert.NoError(t, err)
	assert.Equal(t, "alice_bob", id)
}

func TestDeriveRoomID_Invalid(t *testing.T) {
	cases := [][2]string{
		{"", "bob"},
		{"alice", ""},
		{"", ""},
		{"al_ice", "bob"},
		{"a.b", "bob"},
		{"$where", "bob"},
	}
	for _, c := range cases {
		id, err := DeriveRoomID(c[0], c[1])
		assert.Empty(t, id)
		assert.True(t, errors.Is(err, ErrInvalidArgument), "%v", c)
	}
}

func TestValidateText(t *testing.T) {
	assert.NoError(t, ValidateText("hi"))
	assert.ErrorIs(t, ValidateText(""), ErrValidation)
	assert.ErrorIs(t, ValidateText(" \t\n"), ErrValidation)

	long := make([]rune, MaxTextLength+1)
	for i := range long {
		long[i] = 'a'
	}
	assert.ErrorIs(t, ValidateText(string(long)), ErrValidation)
	assert.NoError(t, ValidateText(string(long[:MaxTextLength])))
}

func TestConversation_Unread(t *testing.T) {
	c := &Conversation{ID: "a_b", Users: []string{"a", "b"}}
	assert.Equal(t, 0, c.Unread("a"))
	c.UnreadCount = map[string]int{"b": 3}
	assert.Equal(t, 3, c.Unread("b"))
	assert.True(t, c.HasUser("a"))
	assert.False(t, c.HasUser("c"))
}

func TestParseRoomID(t *testing.T) {
	a, b, err := ParseRoomID("alice_bob")
	assert.NoError(t, err)
	assert.Equal(t, "alice", a)
	assert.Equal(t, "bob", b)

	for _, bad := range []string{"", "alice", "bob_alice", "a_b_c", "_bob"} {
		_, _, err := ParseRoomID(bad)
		assert.ErrorIs(t, err, ErrInvalidArgument, bad)
	}
}
