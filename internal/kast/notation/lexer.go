package notation

import (
	"strings"
	"unicode"
)

// operators maps every operator word to the label of the symbol it
// denotes. Structural operators (=>, ~>, |->) have no label.
var operators = map[string]string{
	"=>":      "",
	"~>":      "",
	"|->":     "",
	"andBool": "_andBool_",
	"orBool":  "_orBool_",
	"notBool": "notBool_",
	"==K":     "_==K_",
	"=/=K":    "_=/=K_",
	"==Int":   "_==Int_",
	"=/=Int":  "_=/=Int_",
	"<Int":    "_<Int_",
	"<=Int":   "_<=Int_",
	">Int":    "_>Int_",
	">=Int":   "_>=Int_",
	"+Int":    "_+Int_",
	"-Int":    "_-Int_",
	"*Int":    "_*Int_",
	"/Int":    "_/Int_",
	"%Int":    "_%Int_",
}

// Lexer scans the input and produces tokens.
type Lexer struct {
	input    string
	position int
	tokens   []Token
	err      error
}

// NewLexer returns a new Lexer for input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		tokens: make([]Token, 0),
	}
}

// Tokenize processes the entire input. The token list always ends with
// a TokenEOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	for l.position < len(l.input) && l.err == nil {
		start := l.position
		switch c := l.input[l.position]; {
		case isWhitespace(c):
			l.position++
		case c == '(':
			l.addToken(TokenLParen, "(", start)
			l.position++
		case c == ')':
			l.addToken(TokenRParen, ")", start)
			l.position++
		case c == ',':
			l.addToken(TokenComma, ",", start)
			l.position++
		case c == '"':
			l.lexString(start)
		case c == '<' && l.matchCell(start):
			// cell tag consumed
		default:
			l.lexWord(start)
		}
	}
	if l.err != nil {
		return nil, l.err
	}
	l.addToken(TokenEOF, "", l.position)
	return l.tokens, nil
}

// matchCell recognises <name> and </name>.
func (l *Lexer) matchCell(start int) bool {
	rest := l.input[start:]
	closing := strings.HasPrefix(rest, "</")
	i := 1
	if closing {
		i = 2
	}
	j := i
	for j < len(rest) && isCellNameChar(rest[j]) {
		j++
	}
	if j == i || j >= len(rest) || rest[j] != '>' {
		return false
	}
	name := rest[i:j]
	if closing {
		l.addToken(TokenCellClose, "<"+name+">", start)
	} else {
		l.addToken(TokenCellOpen, "<"+name+">", start)
	}
	l.position = start + j + 1
	return true
}

func (l *Lexer) lexString(start int) {
	i := start + 1
	for i < len(l.input) {
		switch l.input[i] {
		case '\\':
			i += 2
			continue
		case '"':
			l.addToken(TokenString, l.input[start:i+1], start)
			l.position = i + 1
			return
		}
		i++
	}
	l.err = &SyntaxError{Position: start, Msg: "unterminated string"}
}

// lexWord scans up to the next whitespace, parenthesis, comma or closing
// cell tag and classifies the word.
func (l *Lexer) lexWord(start int) {
	for l.position < len(l.input) {
		c := l.input[l.position]
		if isWhitespace(c) || c == '(' || c == ')' || c == ',' {
			break
		}
		if l.position > start && strings.HasPrefix(l.input[l.position:], "</") {
			break
		}
		l.position++
	}
	word := l.input[start:l.position]
	l.addToken(classify(word), word, start)
}

func classify(word string) TokenType {
	if _, ok := operators[word]; ok {
		return TokenOp
	}
	switch {
	case word == "...":
		return TokenDots
	case isInteger(word):
		return TokenInt
	case word == "_" || word[0] == '?' || word[0] == '_' || unicode.IsUpper(rune(word[0])):
		return TokenVar
	}
	return TokenIdent
}

func isInteger(word string) bool {
	digits := strings.TrimPrefix(word, "-")
	if digits == "" {
		return false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return false
		}
	}
	return true
}

func isCellNameChar(c byte) bool {
	return c == '-' || c == '_' || unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))
}

func (l *Lexer) addToken(tokenType TokenType, value string, pos int) {
	l.tokens = append(l.tokens, Token{
		Type:     tokenType,
		Value:    value,
		Position: pos,
	})
}

func isWhitespace(c byte) bool {
	return unicode.IsSpace(rune(c))
}
