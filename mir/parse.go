package mir

import (
	"fmt"
	"os"
	"strconv"
)

// maxParseDepth bounds expression nesting so malformed input fails with an
// error instead of exhausting the stack.
const maxParseDepth = 10000

// Parse reads a unit definition from src. The filename is used for
// positions only; src is not read from disk.
func Parse(filename string, src []byte) (*Unit, error) {
	p := newParser(filename, src)
	n, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	u, ok := n.(*Unit)
	if !ok {
		return nil, fmt.Errorf("%s: top-level form must be a unit", p.sc.file)
	}
	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("%s: unexpected %q after unit", p.tok.pos, p.tok.text)
	}
	return u, nil
}

// ParseFile reads a unit definition from the file at path.
func ParseFile(path string) (*Unit, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, src)
}

// ParseNode reads a single expression or definition from src.
func ParseNode(filename string, src []byte) (Node, error) {
	p := newParser(filename, src)
	n, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("%s: unexpected %q after expression", p.tok.pos, p.tok.text)
	}
	return n, nil
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokLParen
	tokRParen
	tokAtom
)

type token struct {
	kind tokKind
	text string
	pos  Pos
}

type scanner struct {
	file string
	src  []byte
	off  int
	line int
	col  int
}

func (s *scanner) pos() Pos {
	return Pos{File: s.file, Line: s.line, Col: s.col}
}

func (s *scanner) skipSpace() {
	for s.off < len(s.src) {
		switch s.src[s.off] {
		case ' ', '\t', '\r':
			s.off++
			s.col++
		case '\n':
			s.off++
			s.line++
			s.col = 1
		case ';':
			for s.off < len(s.src) && s.src[s.off] != '\n' {
				s.off++
				s.col++
			}
		default:
			return
		}
	}
}

func (s *scanner) scan() token {
	s.skipSpace()
	pos := s.pos()
	if s.off >= len(s.src) {
		return token{kind: tokEOF, text: "end of input", pos: pos}
	}
	switch s.src[s.off] {
	case '(':
		s.off++
		s.col++
		return token{kind: tokLParen, text: "(", pos: pos}
	case ')':
		s.off++
		s.col++
		return token{kind: tokRParen, text: ")", pos: pos}
	}
	start := s.off
	for s.off < len(s.src) && !delim(s.src[s.off]) {
		s.off++
		s.col++
	}
	return token{kind: tokAtom, text: string(s.src[start:s.off]), pos: pos}
}

func delim(c byte) bool {
	switch c {
	case '(', ')', ';', ' ', '\t', '\r', '\n':
		return true
	}
	return false
}

type parser struct {
	sc    *scanner
	tok   token
	depth int
}

func newParser(filename string, src []byte) *parser {
	p := &parser{sc: &scanner{file: filename, src: src, line: 1, col: 1}}
	p.next()
	return p
}

func (p *parser) next() {
	p.tok = p.sc.scan()
}

// atom consumes and returns the current token, which must be an atom.
func (p *parser) atom(what string) (token, error) {
	tok := p.tok
	if tok.kind != tokAtom {
		return token{}, fmt.Errorf("%s: expected %s, got %q", tok.pos, what, tok.text)
	}
	p.next()
	return tok, nil
}

func (p *parser) expect(kind tokKind, what string) (Pos, error) {
	tok := p.tok
	if tok.kind != kind {
		return Pos{}, fmt.Errorf("%s: expected %s, got %q", tok.pos, what, tok.text)
	}
	p.next()
	return tok.pos, nil
}

func (p *parser) parseNode() (Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxParseDepth {
		return nil, fmt.Errorf("%s: expression nesting exceeds %d levels", p.tok.pos, maxParseDepth)
	}

	tok := p.tok
	switch tok.kind {
	case tokAtom:
		p.next()
		if numeric(tok.text) {
			v, err := strconv.ParseInt(tok.text, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: bad integer literal %q: %v", tok.pos, tok.text, err)
			}
			return &Const{Value: v}, nil
		}
		return &Var{Name: tok.text}, nil
	case tokLParen:
		return p.parseForm(tok.pos)
	case tokRParen:
		return nil, fmt.Errorf("%s: unexpected %q", tok.pos, ")")
	}
	return nil, fmt.Errorf("%s: unexpected end of input", tok.pos)
}

// parseForm parses a parenthesized form. The current token is the opening
// paren, located at open.
func (p *parser) parseForm(open Pos) (Node, error) {
	p.next()
	headTok, err := p.atom("form name")
	if err != nil {
		return nil, err
	}

	switch headTok.text {
	case "load":
		return p.parseLoad(open)
	case "store":
		return p.parseStore(open)
	case "let":
		name, err := p.atom("binding name")
		if err != nil {
			return nil, err
		}
		bind, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		body, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, `")"`); err != nil {
			return nil, err
		}
		return &Let{Name: name.text, Bind: bind, Body: body}, nil
	case "prim":
		op, err := p.atom("operator")
		if err != nil {
			return nil, err
		}
		args, err := p.parseList()
		if err != nil {
			return nil, err
		}
		return &Prim{Op: op.text, Args: args}, nil
	case "call":
		sym, err := p.atom("callee symbol")
		if err != nil {
			return nil, err
		}
		args, err := p.parseList()
		if err != nil {
			return nil, err
		}
		return &Call{Sym: sym.text, Args: args, Pos: open}, nil
	case "seq":
		list, err := p.parseList()
		if err != nil {
			return nil, err
		}
		return &Seq{List: list}, nil
	case "if":
		cond, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		then, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		els, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, `")"`); err != nil {
			return nil, err
		}
		return &If{Cond: cond, Then: then, Else: els}, nil
	case "frameaddr":
		if _, err := p.expect(tokRParen, `")"`); err != nil {
			return nil, err
		}
		return &FrameAddr{}, nil
	case "hook":
		sym, err := p.atom("hook symbol")
		if err != nil {
			return nil, err
		}
		args, err := p.parseList()
		if err != nil {
			return nil, err
		}
		return &HookCall{Sym: sym.text, Args: args}, nil
	case "func":
		return p.parseFunc(open)
	case "unit":
		name, err := p.atom("unit name")
		if err != nil {
			return nil, err
		}
		u := &Unit{Name: name.text}
		for p.tok.kind != tokRParen {
			n, err := p.parseNode()
			if err != nil {
				return nil, err
			}
			f, ok := n.(*FuncDef)
			if !ok {
				return nil, fmt.Errorf("%s: unit body allows only func definitions", open)
			}
			u.Funcs = append(u.Funcs, f)
		}
		p.next()
		return u, nil
	}
	return nil, fmt.Errorf("%s: unknown form %q", headTok.pos, headTok.text)
}

func (p *parser) parseLoad(open Pos) (Node, error) {
	width, err := p.parseWidth()
	if err != nil {
		return nil, err
	}
	mode, err := p.atom("access mode")
	if err != nil {
		return nil, err
	}
	n := &Load{Width: width, Pos: open}
	switch mode.text {
	case "mut":
		n.Mut = Mutable
	case "imm":
		n.Mut = Immutable
	case "unknown":
		n.Mut = MutUnknown
	case "atomic":
		n.Atomic = true
	default:
		return nil, fmt.Errorf("%s: bad load mode %q", mode.pos, mode.text)
	}
	if n.Addr, err = p.parseNode(); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen, `")"`); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *parser) parseStore(open Pos) (Node, error) {
	width, err := p.parseWidth()
	if err != nil {
		return nil, err
	}
	mode, err := p.atom("store kind")
	if err != nil {
		return nil, err
	}
	n := &Store{Width: width, Pos: open}
	switch mode.text {
	case "assign":
		n.Kind = Assignment
	case "init":
		n.Kind = Initialization
	case "unknown":
		n.Kind = StoreUnknown
	case "atomic":
		n.Atomic = true
	default:
		return nil, fmt.Errorf("%s: bad store kind %q", mode.pos, mode.text)
	}
	if n.Addr, err = p.parseNode(); err != nil {
		return nil, err
	}
	if n.Val, err = p.parseNode(); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen, `")"`); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *parser) parseWidth() (int, error) {
	tok, err := p.atom("access width")
	if err != nil {
		return 0, err
	}
	w, err := strconv.Atoi(tok.text)
	if err != nil {
		return 0, fmt.Errorf("%s: bad access width %q", tok.pos, tok.text)
	}
	return w, nil
}

func (p *parser) parseFunc(open Pos) (Node, error) {
	f := &FuncDef{Pos: open}

	if _, err := p.expect(tokLParen, `"(name"`); err != nil {
		return nil, err
	}
	if err := p.keyword("name"); err != nil {
		return nil, err
	}
	name, err := p.atom("function name")
	if err != nil {
		return nil, err
	}
	f.Name = name.text
	if _, err := p.expect(tokRParen, `")"`); err != nil {
		return nil, err
	}

	if _, err := p.expect(tokLParen, `"(params"`); err != nil {
		return nil, err
	}
	if err := p.keyword("params"); err != nil {
		return nil, err
	}
	for p.tok.kind == tokAtom {
		f.Params = append(f.Params, p.tok.text)
		p.next()
	}
	if _, err := p.expect(tokRParen, `")"`); err != nil {
		return nil, err
	}

	if p.tok.kind == tokLParen {
		save := *p.sc
		saveTok := p.tok
		p.next()
		if p.tok.kind == tokAtom && p.tok.text == "norace" {
			p.next()
			if _, err := p.expect(tokRParen, `")"`); err != nil {
				return nil, err
			}
			f.NoRace = true
		} else {
			*p.sc = save
			p.tok = saveTok
		}
	}

	if f.Body, err = p.parseNode(); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen, `")"`); err != nil {
		return nil, err
	}
	return f, nil
}

func (p *parser) keyword(want string) error {
	tok, err := p.atom(fmt.Sprintf("%q", want))
	if err != nil {
		return err
	}
	if tok.text != want {
		return fmt.Errorf("%s: expected %q, got %q", tok.pos, want, tok.text)
	}
	return nil
}

// parseList parses nodes up to and including the closing paren.
func (p *parser) parseList() ([]Node, error) {
	var list []Node
	for p.tok.kind != tokRParen {
		if p.tok.kind == tokEOF {
			return nil, fmt.Errorf("%s: unexpected end of input", p.tok.pos)
		}
		n, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	p.next()
	return list, nil
}

func numeric(s string) bool {
	if s == "" {
		return false
	}
	if (s[0] == '-' || s[0] == '+') && len(s) > 1 {
		s = s[1:]
	}
	return s[0] >= '0' && s[0] <= '9'
}
