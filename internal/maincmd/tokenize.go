package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/Shylie/shyll/lang/scanner"
	"github.com/Shylie/shyll/lang/token"
)

// Tokenize scans the file named by args[0] and prints one line per token to
// stdout.
func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return &fileError{err: err}
	}

	var sc scanner.Scanner
	sc.Init(string(src))
	for {
		tok := sc.Scan()
		fmt.Fprintf(stdio.Stdout, "%4d  %-14s %q\n", tok.Line, tok.Type, tok.Lexeme)
		if tok.Type == token.End {
			break
		}
	}
	return nil
}
