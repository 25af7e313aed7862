package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTagConstructors(t *testing.T) {
	require.Equal(t, Tag{Type: "Client", ID: "LIST"}, ListTag("Client"))
	require.Equal(t, Tag{Type: "Client", ID: "7"}, IDTag("Client", 7))
	require.Equal(t, Tag{Type: "Auth"}, TypeTag("Auth"))
}

func TestMatches(t *testing.T) {
	listEntry := []Tag{ListTag("Client"), IDTag("Client", 1), IDTag("Client", 2)}
	singleEntry := []Tag{IDTag("Client", 2)}
	familyEntry := []Tag{TypeTag("Auth")}

	tests := []struct {
		name        string
		provided    []Tag
		invalidated Tag
		want        bool
	}{
		{"list tag hits every entry of the type", singleEntry, ListTag("Client"), true},
		{"list tag hits list entries", listEntry, ListTag("Client"), true},
		{"id tag hits the entry providing it", singleEntry, IDTag("Client", 2), true},
		{"id tag misses other ids", singleEntry, IDTag("Client", 3), false},
		{"id tag hits a list containing it", listEntry, IDTag("Client", 2), true},
		{"id tag misses a list without it", listEntry, IDTag("Client", 99), false},
		{"type mismatch never matches", listEntry, ListTag("Bot"), false},
		{"family tag hits family entries", familyEntry, TypeTag("Auth"), true},
		{"id tag hits family entries of its type", familyEntry, IDTag("Auth", 5), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, matches(tc.provided, tc.invalidated))
		})
	}
}

func TestEntryKeyDistinguishesParams(t *testing.T) {
	a, err := newEntryKey("Client", 1)
	require.NoError(t, err)
	b, err := newEntryKey("Client", 2)
	require.NoError(t, err)
	c, err := newEntryKey("Client", 1)
	require.NoError(t, err)
	void, err := newEntryKey("Client", nil)
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.Equal(t, a, c)
	require.Equal(t, "void", void.ParamHash)
}
