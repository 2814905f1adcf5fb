package scanner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Shylie/shyll/lang/token"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	var s Scanner
	s.Init(src)
	var toks []token.Token
	for {
		tok := s.Scan()
		toks = append(toks, tok)
		if tok.Type == token.End {
			return toks
		}
	}
}

func TestScanLiterals(t *testing.T) {
	toks := scanAll(t, `1 2.5 "hi" true false`)
	require.Equal(t, []token.Kind{token.Long, token.Double, token.String, token.True, token.False, token.End},
		kinds(toks))
	require.Equal(t, `"hi"`, toks[2].Lexeme)
}

func TestScanKeywordsAndOperators(t *testing.T) {
	toks := scanAll(t, "add sub -> <- ++ -- : @")
	require.Equal(t, []token.Kind{
		token.Add, token.Subtract, token.Load, token.Store,
		token.Create, token.Delete, token.FunctionHeader, token.FunctionCall,
		token.End,
	}, kinds(toks))
}

func TestScanIdentifier(t *testing.T) {
	toks := scanAll(t, "counter")
	require.Equal(t, token.Identifier, toks[0].Type)
	require.Equal(t, "counter", toks[0].Lexeme)
}

func TestSkipsCommentsAndTracksLines(t *testing.T) {
	toks := scanAll(t, "1 # a comment\n2")
	require.Equal(t, token.Long, toks[0].Type)
	require.Equal(t, 1, toks[0].Line)
	require.Equal(t, token.Long, toks[1].Type)
	require.Equal(t, 2, toks[1].Line)
}

func TestHadWhitespace(t *testing.T) {
	toks := scanAll(t, "name++")
	require.False(t, toks[1].HadWhitespace) // `++` directly after `name`

	toks = scanAll(t, "name ++")
	require.True(t, toks[1].HadWhitespace)
}

func TestUnterminatedString(t *testing.T) {
	toks := scanAll(t, `"unterminated`)
	require.Equal(t, token.Error, toks[0].Type)
}

func TestUnexpectedCharacter(t *testing.T) {
	toks := scanAll(t, "$")
	require.Equal(t, token.Error, toks[0].Type)
}

func TestScanPastEndKeepsReturningEnd(t *testing.T) {
	var s Scanner
	s.Init("")
	require.Equal(t, token.End, s.Scan().Type)
	require.Equal(t, token.End, s.Scan().Type)
}

func TestReinitRescans(t *testing.T) {
	var s Scanner
	s.Init("1")
	require.Equal(t, token.Long, s.Scan().Type)
	s.Init("true")
	tok := s.Scan()
	require.Equal(t, token.True, tok.Type)
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}
