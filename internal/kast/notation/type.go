package notation

import "fmt"

// TokenType defines the kinds of tokens produced by the lexer.
type TokenType int

const (
	TokenInt       TokenType = iota // 42, -7
	TokenString                     // "text"
	TokenVar                        // X, N:Int, ?Y, _
	TokenIdent                      // foo, pred1, true, .K, .Map
	TokenOp                         // =>, ~>, |->, +Int, andBool, ...
	TokenCellOpen                   // <k>
	TokenCellClose                  // </k>
	TokenDots                       // ...
	TokenLParen                     // (
	TokenRParen                     // )
	TokenComma                      // ,
	TokenEOF                        // end of input
)

var tokenNames = map[TokenType]string{
	TokenInt:       "integer",
	TokenString:    "string",
	TokenVar:       "variable",
	TokenIdent:     "identifier",
	TokenOp:        "operator",
	TokenCellOpen:  "cell open",
	TokenCellClose: "cell close",
	TokenDots:      "...",
	TokenLParen:    "(",
	TokenRParen:    ")",
	TokenComma:     ",",
	TokenEOF:       "end of input",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a single lexical token with its starting offset in the input.
type Token struct {
	Type     TokenType
	Value    string
	Position int
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return t.Type.String()
	}
	return fmt.Sprintf("%s %q", t.Type, t.Value)
}

// SyntaxError reports a malformed input with the offset where it was found.
type SyntaxError struct {
	Position int
	Msg      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Position, e.Msg)
}
