// Package mathexpr evaluates the flat arithmetic expressions posed by the
// calculator game: visually-styled operator glyphs, no parentheses,
// multiplication and division before addition and subtraction.
package mathexpr

import (
	"strconv"
	"strings"
)

// glyphReplacer canonicalizes visual operator glyphs to +-*/.
var glyphReplacer = strings.NewReplacer(
	"×", "*", // × multiplication sign
	"✕", "*", // ✕ multiplication x
	"✖", "*", // ✖ heavy multiplication x
	"x", "*",
	"X", "*",
	"÷", "/", // ÷ division sign
	":", "/",
	"−", "-", // − minus sign
)

const allowed = "0123456789+-*/. "

// Clean strips an input line down to the canonical arithmetic character
// set, translating operator glyphs first.
func Clean(input string) string {
	text := glyphReplacer.Replace(input)

	var b strings.Builder
	for _, r := range text {
		if strings.ContainsRune(allowed, r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// IsEquation reports whether the cleaned text holds at least one digit
// and one operator, the bar an input must pass before evaluation.
func IsEquation(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	hasDigit := strings.ContainsAny(text, "0123456789")
	hasOp := strings.ContainsAny(text, "+-*/")
	return hasDigit && hasOp
}

// Eval evaluates a cleaned expression. It applies * and / in a single
// left-to-right pass before + and -, parses numbers as locale-invariant
// decimals, and reports ok=false on any malformed input. It never panics.
func Eval(expression string) (result float64, ok bool) {
	tokens := tokenize(expression)
	if len(tokens) == 0 || len(tokens)%2 == 0 {
		return 0, false
	}

	// Alternating number/operator shape check up front so the passes
	// below can index freely.
	for i, tok := range tokens {
		if i%2 == 0 {
			if _, err := strconv.ParseFloat(tok, 64); err != nil {
				return 0, false
			}
		} else if tok != "+" && tok != "-" && tok != "*" && tok != "/" {
			return 0, false
		}
	}

	// First pass: * and /.
	for i := 1; i < len(tokens); i += 2 {
		op := tokens[i]
		if op != "*" && op != "/" {
			continue
		}
		left, _ := strconv.ParseFloat(tokens[i-1], 64)
		right, _ := strconv.ParseFloat(tokens[i+1], 64)

		var res float64
		if op == "*" {
			res = left * right
		} else {
			res = left / right
		}

		tokens[i-1] = strconv.FormatFloat(res, 'f', -1, 64)
		tokens = append(tokens[:i], tokens[i+2:]...)
		i -= 2
	}

	// Second pass: + and -, left to right.
	result, _ = strconv.ParseFloat(tokens[0], 64)
	for i := 1; i < len(tokens); i += 2 {
		val, _ := strconv.ParseFloat(tokens[i+1], 64)
		switch tokens[i] {
		case "+":
			result += val
		case "-":
			result -= val
		}
	}

	return result, true
}

// EvalLine cleans and evaluates one line, returning the invariant decimal
// rendering of the result, or "" if the line is not an equation.
func EvalLine(line string) string {
	cleaned := Clean(line)
	if !IsEquation(cleaned) {
		return ""
	}
	result, ok := Eval(cleaned)
	if !ok {
		return ""
	}
	return strconv.FormatFloat(result, 'f', -1, 64)
}

// Solve scans a multi-line prompt for the first evaluable line and
// returns its result, or "" when no line evaluates.
func Solve(text string) string {
	for _, line := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' }) {
		if answer := EvalLine(line); answer != "" {
			return answer
		}
	}
	return ""
}

func tokenize(expression string) []string {
	var tokens []string
	var number strings.Builder

	flush := func() {
		if number.Len() > 0 {
			tokens = append(tokens, number.String())
			number.Reset()
		}
	}

	for _, r := range expression {
		switch {
		case r >= '0' && r <= '9', r == '.':
			number.WriteRune(r)
		case r == '+', r == '-', r == '*', r == '/':
			flush()
			tokens = append(tokens, string(r))
		}
	}
	flush()

	return tokens
}
