package query

import (
	"strings"

	"github.com/elcuervo/otq/internal/task"
)

// Boolean filters combine other filters written in parentheses or double
// quotes with NOT, AND, XOR and OR, binding in that order.
//
//	(due today) OR (tags include #urgent)
//	NOT ("done") AND (path includes work)

type boolOp int

const (
	opLeaf boolOp = iota
	opNot
	opAnd
	opXor
	opOr
)

type boolNode struct {
	op       boolOp
	children []*boolNode
	leaf     *Filter
}

func (n *boolNode) eval(t *task.Task, si *SearchInfo) bool {
	switch n.op {
	case opLeaf:
		return n.leaf.Matches(t, si)
	case opNot:
		return !n.children[0].eval(t, si)
	case opAnd:
		for _, c := range n.children {
			if !c.eval(t, si) {
				return false
			}
		}
		return true
	case opOr:
		for _, c := range n.children {
			if c.eval(t, si) {
				return true
			}
		}
		return false
	default:
		odd := false
		for _, c := range n.children {
			if c.eval(t, si) {
				odd = !odd
			}
		}
		return odd
	}
}

var boolHeaders = map[boolOp]string{
	opNot: "None of:",
	opAnd: "All of:",
	opXor: "Exactly one of:",
	opOr:  "At least one of:",
}

func (n *boolNode) explain(b *strings.Builder, indent string) {
	if n.op == opLeaf {
		for _, line := range strings.Split(n.leaf.Explanation, "\n") {
			b.WriteString(indent + line + "\n")
		}
		return
	}
	b.WriteString(indent + boolHeaders[n.op] + "\n")
	for _, c := range n.children {
		c.explain(b, indent+"  ")
	}
}

type boolToken struct {
	operand bool
	text    string
}

func looksBoolean(line string) bool {
	if strings.HasPrefix(line, "(") || strings.HasPrefix(line, `"`) {
		return true
	}
	rest, ok := strings.CutPrefix(line, "NOT ")
	if !ok {
		return false
	}
	rest = strings.TrimSpace(rest)
	return strings.HasPrefix(rest, "(") || strings.HasPrefix(rest, `"`)
}

func parseBooleanFilter(line string, ctx compileContext) (*Filter, error) {
	if !looksBoolean(line) {
		return nil, nil
	}

	tokens, err := tokenizeBoolean(line)
	if err != nil {
		return nil, err
	}

	p := &boolParser{tokens: tokens, ctx: ctx}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, parseErrorf("malformed boolean filter: unexpected %q", p.tokens[p.pos].text)
	}

	// A single operand such as "(done)" is just the inner filter.
	if root.op == opLeaf {
		return root.leaf, nil
	}

	var b strings.Builder
	root.explain(&b, "")
	return newFilter(strings.TrimSuffix(b.String(), "\n"), root.eval), nil
}

func tokenizeBoolean(line string) ([]boolToken, error) {
	var tokens []boolToken

	for i := 0; i < len(line); {
		switch c := line[i]; {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			end, err := matchParen(line, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, boolToken{operand: true, text: strings.TrimSpace(line[i+1 : end])})
			i = end + 1
		case c == '"':
			end := strings.IndexByte(line[i+1:], '"')
			if end < 0 {
				return nil, parseErrorf("malformed boolean filter: unclosed quote")
			}
			tokens = append(tokens, boolToken{operand: true, text: strings.TrimSpace(line[i+1 : i+1+end])})
			i += end + 2
		default:
			j := i
			for j < len(line) && line[j] != ' ' && line[j] != '\t' && line[j] != '(' && line[j] != '"' {
				j++
			}
			word := line[i:j]
			switch word {
			case "AND", "OR", "XOR", "NOT":
				tokens = append(tokens, boolToken{text: word})
			default:
				return nil, parseErrorf("malformed boolean filter: unexpected %q", word)
			}
			i = j
		}
	}

	return tokens, nil
}

// matchParen returns the index of the parenthesis closing the one at open.
// Parentheses inside double quotes are ignored.
func matchParen(line string, open int) (int, error) {
	depth := 0
	quoted := false
	for i := open; i < len(line); i++ {
		switch line[i] {
		case '"':
			quoted = !quoted
		case '(':
			if !quoted {
				depth++
			}
		case ')':
			if quoted {
				continue
			}
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, parseErrorf("malformed boolean filter: unbalanced parentheses")
}

type boolParser struct {
	tokens []boolToken
	pos    int
	ctx    compileContext
}

func (p *boolParser) peekOp(op string) bool {
	return p.pos < len(p.tokens) && !p.tokens[p.pos].operand && p.tokens[p.pos].text == op
}

func (p *boolParser) parseBinary(op string, kind boolOp, next func() (*boolNode, error)) (*boolNode, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	if !p.peekOp(op) {
		return left, nil
	}

	node := &boolNode{op: kind, children: []*boolNode{left}}
	for p.peekOp(op) {
		p.pos++
		right, err := next()
		if err != nil {
			return nil, err
		}
		node.children = append(node.children, right)
	}
	return node, nil
}

func (p *boolParser) parseOr() (*boolNode, error) {
	return p.parseBinary("OR", opOr, p.parseXor)
}

func (p *boolParser) parseXor() (*boolNode, error) {
	return p.parseBinary("XOR", opXor, p.parseAnd)
}

func (p *boolParser) parseAnd() (*boolNode, error) {
	return p.parseBinary("AND", opAnd, p.parseNot)
}

func (p *boolParser) parseNot() (*boolNode, error) {
	if p.peekOp("NOT") {
		p.pos++
		child, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &boolNode{op: opNot, children: []*boolNode{child}}, nil
	}

	if p.pos >= len(p.tokens) {
		return nil, parseErrorf("malformed boolean filter: missing operand")
	}
	tok := p.tokens[p.pos]
	if !tok.operand {
		return nil, parseErrorf("malformed boolean filter: unexpected %q", tok.text)
	}
	p.pos++

	f, err := compileFilter(tok.text, p.ctx)
	if err != nil {
		return nil, err
	}
	return &boolNode{op: opLeaf, leaf: f}, nil
}
