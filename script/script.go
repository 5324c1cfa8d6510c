// Package script parses the line-oriented script dialect (spec §4.9): the
// same expression grammar as the template dialect, but statements are
// delimited by newlines instead of {% %} tags, and output is a structured
// data tree built by `@handle.path` commands instead of a rendered string.
// Line-level dispatch mirrors package parser's tag dispatch (one parseX per
// leading keyword), grounded the same way on the teacher's forked
// text/template parser's one-production-per-action shape.
package script

import (
	"strings"

	"github.com/cascada-go/cascada/ast"
	"github.com/cascada-go/cascada/errors"
	"github.com/cascada-go/cascada/lexer"
	"github.com/cascada-go/cascada/parser"
	"github.com/cascada-go/cascada/token"
)

// Script is the parsed form of a script-dialect source: its statement body
// plus the root handle name declared by the leading `:name` header.
type Script struct {
	Handle string
	Body   []ast.Node
}

// Parse parses script-dialect source. template names the source for error
// locations.
func Parse(template, src string) (*Script, error) {
	lines := splitLines(src)
	p := &sparser{template: template, lines: lines}

	handle, err := p.parseHeader()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if i, _, ok := p.nextSignificant(); ok {
		return nil, p.errorfAt(i, "unexpected trailing statement")
	}
	return &Script{Handle: handle, Body: body}, nil
}

type srcLine struct {
	lineNo int
	text   string
}

func splitLines(src string) []srcLine {
	raw := strings.Split(src, "\n")
	out := make([]srcLine, 0, len(raw))
	for i, l := range raw {
		out = append(out, srcLine{lineNo: i + 1, text: l})
	}
	return out
}

type sparser struct {
	template string
	lines    []srcLine
	idx      int
}

func (p *sparser) errorfAt(idx int, format string, args ...interface{}) error {
	lineNo := 0
	if idx < len(p.lines) {
		lineNo = p.lines[idx].lineNo
	}
	return errors.NewSyntaxError(p.template, token.Position{Line: lineNo, Column: 1}, format, args...)
}

// significant reports whether a line carries a statement: not blank, not a
// `#`-prefixed comment (a supplemented convenience; spec §4.9 is silent on
// script comments).
func significant(text string) bool {
	t := strings.TrimSpace(text)
	return t != "" && !strings.HasPrefix(t, "#")
}

func (p *sparser) nextSignificant() (int, string, bool) {
	for i := p.idx; i < len(p.lines); i++ {
		if significant(p.lines[i].text) {
			return i, strings.TrimSpace(p.lines[i].text), true
		}
	}
	return -1, "", false
}

// tokenize lexes one already-trimmed logical line.
func (p *sparser) tokenize(i int, text string) ([]token.Token, error) {
	return lexer.TokenizeExpr(p.template, text)
}

func (p *sparser) parseHeader() (string, error) {
	i, text, ok := p.nextSignificant()
	if !ok {
		return "", p.errorfAt(0, "empty script: expected a `:handle` header")
	}
	toks, err := p.tokenize(i, text)
	if err != nil {
		return "", err
	}
	if len(toks) < 2 || toks[0].Kind != token.COLON || toks[1].Kind != token.IDENT {
		return "", p.errorfAt(i, "expected `:handle` header, found %q", text)
	}
	p.idx = i + 1
	return toks[1].Value, nil
}

// lineKeyword is the leading token kind of a line one level of block
// recursion is allowed to stop at without consuming.
type lineKeyword = token.Kind

// parseBlock parses statements until EOF or an unconsumed ender line is
// reached; the caller inspects the stopping line itself.
func (p *sparser) parseBlock(enders ...lineKeyword) ([]ast.Node, error) {
	var body []ast.Node
	for {
		i, text, ok := p.nextSignificant()
		if !ok {
			return body, nil
		}
		toks, err := p.tokenize(i, text)
		if err != nil {
			return nil, err
		}
		if len(toks) == 0 {
			return nil, p.errorfAt(i, "empty statement")
		}
		if isEnderLine(toks[0].Kind, enders) {
			return body, nil
		}
		p.idx = i + 1
		stmt, err := p.parseLine(i, toks)
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			body = append(body, stmt)
		}
	}
}

func isEnderLine(k token.Kind, enders []lineKeyword) bool {
	for _, e := range enders {
		if e == k {
			return true
		}
	}
	return false
}

// expectEnder consumes the next significant line, verifying its leading
// keyword matches want.
func (p *sparser) expectEnder(want token.Kind, label string) error {
	i, text, ok := p.nextSignificant()
	if !ok {
		return p.errorfAt(len(p.lines), "expected %s", label)
	}
	toks, err := p.tokenize(i, text)
	if err != nil {
		return err
	}
	if len(toks) == 0 || toks[0].Kind != want {
		return p.errorfAt(i, "expected %s, found %q", label, text)
	}
	p.idx = i + 1
	return nil
}

func (p *sparser) parseLine(i int, toks []token.Token) (ast.Node, error) {
	pos := toks[0].Pos
	switch toks[0].Kind {
	case token.KW_VAR:
		return p.parseVarOrAssign(pos, toks[1:], ast.SetDeclare)
	case token.KW_EXTERN:
		return p.parseExtern(pos, toks[1:])
	case token.KW_IF:
		return p.parseIf(pos, toks[1:])
	case token.KW_FOR:
		return p.parseFor(pos, toks[1:])
	case token.KW_CAPTURE:
		return p.parseCapture(pos, toks[1:])
	case token.AT:
		return p.parseDataCommand(pos, toks)
	case token.IDENT:
		return p.parseVarOrAssign(pos, toks, ast.SetAssign)
	default:
		return nil, p.errorfAt(i, "unexpected statement %q", toks[0])
	}
}

// parseVarOrAssign handles both `var x = expr` (rest already has the `var`
// keyword stripped) and bare `x = expr` / multi-target `a, b = expr`.
func (p *sparser) parseVarOrAssign(pos token.Position, rest []token.Token, mode ast.SetMode) (ast.Node, error) {
	var targets []string
	i := 0
	for {
		if i >= len(rest) || rest[i].Kind != token.IDENT {
			return nil, p.errorfAt(p.idx-1, "expected identifier in assignment")
		}
		targets = append(targets, rest[i].Value)
		i++
		if i < len(rest) && rest[i].Kind == token.COMMA {
			i++
			continue
		}
		break
	}
	if i >= len(rest) || rest[i].Kind != token.ASSIGN {
		return nil, p.errorfAt(p.idx-1, "expected `=` in assignment")
	}
	exprToks := append(rest[i+1:], token.Token{Kind: token.EOF})
	expr, err := parser.ParseExprTokens(p.template, exprToks)
	if err != nil {
		return nil, err
	}
	return ast.NewSet(pos, targets, expr, mode), nil
}

func (p *sparser) parseExtern(pos token.Position, rest []token.Token) (ast.Node, error) {
	var targets []string
	i := 0
	for {
		if i >= len(rest) || rest[i].Kind != token.IDENT {
			return nil, p.errorfAt(p.idx-1, "expected identifier in extern declaration")
		}
		targets = append(targets, rest[i].Value)
		i++
		if i < len(rest) && rest[i].Kind == token.COMMA {
			i++
			continue
		}
		break
	}
	if i < len(rest) && rest[i].Kind != token.EOF {
		return nil, p.errorfAt(p.idx-1, "extern declarations may not include an initializer")
	}
	return ast.NewSet(pos, targets, nil, ast.SetExtern), nil
}

func (p *sparser) parseIf(pos token.Position, rest []token.Token) (ast.Node, error) {
	exprToks := append(rest, token.Token{Kind: token.EOF})
	cond, err := parser.ParseExprTokens(p.template, exprToks)
	if err != nil {
		return nil, err
	}
	var branches []ast.IfBranch
	body, err := p.parseBlock(token.KW_ELIF, token.KW_ELSE, token.KW_ENDIF)
	if err != nil {
		return nil, err
	}
	branches = append(branches, ast.IfBranch{Cond: cond, Body: body})

	for {
		i, text, ok := p.nextSignificant()
		if !ok {
			return nil, p.errorfAt(len(p.lines), "expected endif")
		}
		toks, err := p.tokenize(i, text)
		if err != nil {
			return nil, err
		}
		if toks[0].Kind != token.KW_ELIF {
			break
		}
		p.idx = i + 1
		elifExpr := append(toks[1:], token.Token{Kind: token.EOF})
		c, err := parser.ParseExprTokens(p.template, elifExpr)
		if err != nil {
			return nil, err
		}
		b, err := p.parseBlock(token.KW_ELIF, token.KW_ELSE, token.KW_ENDIF)
		if err != nil {
			return nil, err
		}
		branches = append(branches, ast.IfBranch{Cond: c, Body: b})
	}

	var elseBody []ast.Node
	i, text, ok := p.nextSignificant()
	if !ok {
		return nil, p.errorfAt(len(p.lines), "expected endif")
	}
	toks, err := p.tokenize(i, text)
	if err != nil {
		return nil, err
	}
	if toks[0].Kind == token.KW_ELSE {
		p.idx = i + 1
		elseBody, err = p.parseBlock(token.KW_ENDIF)
		if err != nil {
			return nil, err
		}
	}
	if err := p.expectEnder(token.KW_ENDIF, "endif"); err != nil {
		return nil, err
	}
	return ast.NewIf(pos, branches, elseBody), nil
}

func (p *sparser) parseFor(pos token.Position, rest []token.Token) (ast.Node, error) {
	if len(rest) == 0 || rest[0].Kind != token.IDENT {
		return nil, p.errorfAt(p.idx-1, "expected identifier after for")
	}
	targets := []string{rest[0].Value}
	i := 1
	if i < len(rest) && rest[i].Kind == token.COMMA {
		i++
		if i >= len(rest) || rest[i].Kind != token.IDENT {
			return nil, p.errorfAt(p.idx-1, "expected identifier after `,`")
		}
		targets = append(targets, rest[i].Value)
		i++
	}
	if i >= len(rest) || rest[i].Kind != token.KW_IN {
		return nil, p.errorfAt(p.idx-1, "expected `in` in for statement")
	}
	i++
	exprToks := append(rest[i:], token.Token{Kind: token.EOF})
	iter, err := parser.ParseExprTokens(p.template, exprToks)
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock(token.KW_ELSE, token.KW_ENDFOR)
	if err != nil {
		return nil, err
	}
	var elseBody []ast.Node
	ii, text, ok := p.nextSignificant()
	if !ok {
		return nil, p.errorfAt(len(p.lines), "expected endfor")
	}
	toks, err := p.tokenize(ii, text)
	if err != nil {
		return nil, err
	}
	if toks[0].Kind == token.KW_ELSE {
		p.idx = ii + 1
		elseBody, err = p.parseBlock(token.KW_ENDFOR)
		if err != nil {
			return nil, err
		}
	}
	if err := p.expectEnder(token.KW_ENDFOR, "endfor"); err != nil {
		return nil, err
	}
	return ast.NewFor(pos, targets, iter, body, elseBody), nil
}

func (p *sparser) parseCapture(pos token.Position, rest []token.Token) (ast.Node, error) {
	if len(rest) < 2 || rest[0].Kind != token.COLON || rest[1].Kind != token.IDENT {
		return nil, p.errorfAt(p.idx-1, "expected `:handle` after capture")
	}
	handle := rest[1].Value
	body, err := p.parseBlock(token.KW_ENDCAPTURE)
	if err != nil {
		return nil, err
	}
	if err := p.expectEnder(token.KW_ENDCAPTURE, "endcapture"); err != nil {
		return nil, err
	}
	return ast.NewCapture(pos, handle, body), nil
}

// parseDataCommand parses `@handle.path.set(expr)`, `@handle.path.push(expr)`,
// or `@handle.path = expr` (spec §3, §4.9).
func (p *sparser) parseDataCommand(pos token.Position, toks []token.Token) (ast.Node, error) {
	i := 1 // skip '@'
	if i >= len(toks) || toks[i].Kind != token.IDENT {
		return nil, p.errorfAt(p.idx-1, "expected handle name after `@`")
	}
	handle := toks[i].Value
	i++
	var path []string
	for i < len(toks) && toks[i].Kind == token.DOT {
		i++
		if i >= len(toks) || toks[i].Kind != token.IDENT {
			return nil, p.errorfAt(p.idx-1, "expected path segment after `.`")
		}
		path = append(path, toks[i].Value)
		i++
	}
	if i < len(toks) && toks[i].Kind == token.ASSIGN {
		exprToks := append(toks[i+1:], token.Token{Kind: token.EOF})
		expr, err := parser.ParseExprTokens(p.template, exprToks)
		if err != nil {
			return nil, err
		}
		return ast.NewDataCommand(pos, handle, path, ast.DataSet, expr), nil
	}
	// `.set(expr)` / `.push(expr)` forms: the last path segment is actually
	// the operation name.
	if len(path) == 0 {
		return nil, p.errorfAt(p.idx-1, "expected `.set(...)`, `.push(...)`, or `=` after handle path")
	}
	opName := path[len(path)-1]
	path = path[:len(path)-1]
	var op ast.DataOp
	switch opName {
	case "set":
		op = ast.DataSet
	case "push":
		op = ast.DataPush
	default:
		return nil, p.errorfAt(p.idx-1, "unknown data command %q", opName)
	}
	if i >= len(toks) || toks[i].Kind != token.LPAREN {
		return nil, p.errorfAt(p.idx-1, "expected `(` after `.%s`", opName)
	}
	i++
	// find matching close paren (no nested parens expected at this level
	// beyond the expression grammar itself, which ParseExprTokens handles).
	depth := 1
	end := -1
	for j := i; j < len(toks); j++ {
		switch toks[j].Kind {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth == 0 {
				end = j
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return nil, p.errorfAt(p.idx-1, "unterminated `.%s(...)`", opName)
	}
	exprToks := append(append([]token.Token{}, toks[i:end]...), token.Token{Kind: token.EOF})
	expr, err := parser.ParseExprTokens(p.template, exprToks)
	if err != nil {
		return nil, err
	}
	return ast.NewDataCommand(pos, handle, path, op, expr), nil
}
