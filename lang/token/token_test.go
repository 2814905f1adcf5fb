package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	for k := Error; k < maxKind; k++ {
		require.NotEqual(t, "unknown", k.String(), "kind %d missing a name", k)
	}
}

func TestLookupKeywords(t *testing.T) {
	for lit, kind := range keywords {
		require.Equal(t, kind, Lookup(lit))
	}
}

func TestLookupIdentifier(t *testing.T) {
	require.Equal(t, Identifier, Lookup("counter"))
	require.Equal(t, Identifier, Lookup("Trace")) // case-sensitive
}
