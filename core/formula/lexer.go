// Package formula - Tokenizer
package formula

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
	tokDot
	tokQuestion
	tokColon
)

type token struct {
	kind tokenKind
	text string // source text of the token
	str  string // unescaped contents, string tokens only
	pos  int
}

// operators ordered longest first so "===" wins over "=="
var operators = []string{"===", "!==", "==", "!=", "<=", ">=", "<", ">", "+", "-", "*", "/"}

var punctuation = map[byte]tokenKind{
	'(': tokLParen,
	')': tokRParen,
	',': tokComma,
	'.': tokDot,
	'?': tokQuestion,
	':': tokColon,
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
			continue

		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			if i < len(src) && src[i] == '.' && i+1 < len(src) && isDigit(src[i+1]) {
				i++
				for i < len(src) && isDigit(src[i]) {
					i++
				}
			}
			toks = append(toks, token{kind: tokNumber, text: src[start:i], pos: start})
			continue

		case c == '"' || c == '\'':
			tok, next, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = next
			continue
		}

		if r, size := utf8.DecodeRuneInString(src[i:]); isIdentStart(r) {
			start := i
			i += size
			for i < len(src) {
				r, size = utf8.DecodeRuneInString(src[i:])
				if isIdentPart(r) {
					i += size
					continue
				}
				// a hyphen joins identifier words only when a letter follows: team-size, not users-10
				if r == '-' && i+1 < len(src) {
					if next, _ := utf8.DecodeRuneInString(src[i+1:]); isIdentStart(next) {
						i++
						continue
					}
				}
				break
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})
			continue
		}

		if kind, ok := punctuation[c]; ok {
			toks = append(toks, token{kind: kind, text: string(c), pos: i})
			i++
			continue
		}

		matched := false
		for _, op := range operators {
			if strings.HasPrefix(src[i:], op) {
				toks = append(toks, token{kind: tokOp, text: op, pos: i})
				i += len(op)
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		r, _ := utf8.DecodeRuneInString(src[i:])
		return nil, &ParseError{Token: string(r), Pos: i, Msg: "unknown token"}
	}

	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

func lexString(src string, start int) (token, int, error) {
	quote := src[start]
	var sb strings.Builder
	i := start + 1
	for i < len(src) {
		c := src[i]
		switch {
		case c == quote:
			return token{kind: tokString, text: src[start : i+1], str: sb.String(), pos: start}, i + 1, nil
		case c == '\\' && i+1 < len(src):
			switch esc := src[i+1]; esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(esc)
			}
			i += 2
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return token{}, 0, &ParseError{Token: src[start:], Pos: start, Msg: "unterminated string literal"}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
