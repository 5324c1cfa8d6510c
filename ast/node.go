// Package ast defines the tagged-variant node tree the parser builds and
// the evaluator walks (spec §3 "AST Node (tagged variant)"). Node shapes
// mirror the teacher's ast_template.go PipeNode/CommandNode/IdentifierNode
// family: one struct per variant, a shared interface, and free-standing
// constructor functions instead of struct literals at call sites.
package ast

import (
	"fmt"
	"strings"

	"github.com/cascada-go/cascada/token"
)

// Kind identifies which variant a Node is.
type Kind int

const (
	// Expressions.
	KindLiteral Kind = iota
	KindSymbol
	KindLookup
	KindCall
	KindFilterCall
	KindTestCall
	KindBinOp
	KindUnaryOp
	KindLogical
	KindTernary
	KindCompare
	KindInOp
	KindArray
	KindDict
	KindGroup

	// Statements.
	KindOutput
	KindRawText
	KindIf
	KindFor
	KindSet
	KindSetBlock
	KindMacro
	KindCallBlock
	KindInclude
	KindExtends
	KindBlock
	KindSuper
	KindSwitch
	KindDo
	KindCapture
	KindExtensionCall
	KindProgram
	KindDataCommand
)

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "Literal"
	case KindSymbol:
		return "Symbol"
	case KindLookup:
		return "Lookup"
	case KindCall:
		return "Call"
	case KindFilterCall:
		return "FilterCall"
	case KindTestCall:
		return "TestCall"
	case KindBinOp:
		return "BinOp"
	case KindUnaryOp:
		return "UnaryOp"
	case KindLogical:
		return "Logical"
	case KindTernary:
		return "If"
	case KindCompare:
		return "Compare"
	case KindInOp:
		return "InOp"
	case KindArray:
		return "Array"
	case KindDict:
		return "Dict"
	case KindGroup:
		return "Group"
	case KindOutput:
		return "Output"
	case KindRawText:
		return "RawText"
	case KindIf:
		return "If"
	case KindFor:
		return "For"
	case KindSet:
		return "Set"
	case KindSetBlock:
		return "SetBlock"
	case KindMacro:
		return "Macro"
	case KindCallBlock:
		return "Call"
	case KindInclude:
		return "Include"
	case KindExtends:
		return "Extends"
	case KindBlock:
		return "Block"
	case KindSuper:
		return "Super"
	case KindSwitch:
		return "Switch"
	case KindDo:
		return "Do"
	case KindCapture:
		return "Capture"
	case KindExtensionCall:
		return "ExtensionCall"
	case KindProgram:
		return "Program"
	case KindDataCommand:
		return "DataCommand"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Node is implemented by every AST variant, expression or statement.
type Node interface {
	Kind() Kind
	Pos() token.Position
	String() string
}

// base is embedded by every concrete node to carry its source position,
// the way the teacher's BaseNode carries a *token.Token.
type base struct {
	pos token.Position
}

func (b base) Pos() token.Position { return b.pos }

// ---- Expressions -----------------------------------------------------

// LitKind distinguishes the possible Literal payload types.
type LitKind int

const (
	LitNil LitKind = iota
	LitBool
	LitInt
	LitFloat
	LitString
)

// Literal is a constant value: nil, bool, int, float, or string (spec §3).
type Literal struct {
	base
	LitKind LitKind
	Bool    bool
	Int     int64
	Float   float64
	Str     string
}

func NewLiteral(pos token.Position, k LitKind) *Literal { return &Literal{base: base{pos}, LitKind: k} }
func (n *Literal) Kind() Kind                           { return KindLiteral }
func (n *Literal) String() string {
	switch n.LitKind {
	case LitNil:
		return "nil"
	case LitBool:
		return fmt.Sprintf("%v", n.Bool)
	case LitInt:
		return fmt.Sprintf("%d", n.Int)
	case LitFloat:
		return fmt.Sprintf("%g", n.Float)
	case LitString:
		return fmt.Sprintf("%q", n.Str)
	}
	return "?"
}

// Symbol is a bare name reference, resolved against the frame chain.
type Symbol struct {
	base
	Name string
}

func NewSymbol(pos token.Position, name string) *Symbol { return &Symbol{base{pos}, name} }
func (n *Symbol) Kind() Kind                             { return KindSymbol }
func (n *Symbol) String() string                         { return n.Name }

// Lookup is attribute or index access: target.attr or target[key]. Key is
// non-nil for bracket syntax (a dynamic expression); otherwise Attr holds
// the static name (dot syntax).
type Lookup struct {
	base
	Target Node
	Attr   string
	Key    Node
}

func NewLookupAttr(pos token.Position, target Node, attr string) *Lookup {
	return &Lookup{base{pos}, target, attr, nil}
}
func NewLookupKey(pos token.Position, target Node, key Node) *Lookup {
	return &Lookup{base{pos}, target, "", key}
}
func (n *Lookup) Kind() Kind { return KindLookup }
func (n *Lookup) String() string {
	if n.Key != nil {
		return fmt.Sprintf("%s[%s]", n.Target, n.Key)
	}
	return fmt.Sprintf("%s.%s", n.Target, n.Attr)
}

// Arg is one argument in a Call/FilterCall/TestCall argument list: either
// positional (Name == "") or a keyword argument.
type Arg struct {
	Name  string
	Value Node
}

// Call is a function invocation: callee(args..., kwargs...).
type Call struct {
	base
	Callee Node
	Args   []Arg
}

func NewCall(pos token.Position, callee Node, args []Arg) *Call { return &Call{base{pos}, callee, args} }
func (n *Call) Kind() Kind                                      { return KindCall }
func (n *Call) String() string {
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		if a.Name != "" {
			parts[i] = fmt.Sprintf("%s=%s", a.Name, a.Value)
		} else {
			parts[i] = a.Value.String()
		}
	}
	return fmt.Sprintf("%s(%s)", n.Callee, strings.Join(parts, ", "))
}

// FilterCall is `input | name(args...)`.
type FilterCall struct {
	base
	Input Node
	Name  string
	Args  []Arg
}

func NewFilterCall(pos token.Position, input Node, name string, args []Arg) *FilterCall {
	return &FilterCall{base{pos}, input, name, args}
}
func (n *FilterCall) Kind() Kind { return KindFilterCall }
func (n *FilterCall) String() string {
	return fmt.Sprintf("%s|%s(...)", n.Input, n.Name)
}

// TestCall is `input is name(args...)`.
type TestCall struct {
	base
	Input Node
	Name  string
	Args  []Arg
	Negate bool // `is not name`
}

func NewTestCall(pos token.Position, input Node, name string, args []Arg, negate bool) *TestCall {
	return &TestCall{base{pos}, input, name, args, negate}
}
func (n *TestCall) Kind() Kind { return KindTestCall }
func (n *TestCall) String() string {
	if n.Negate {
		return fmt.Sprintf("%s is not %s", n.Input, n.Name)
	}
	return fmt.Sprintf("%s is %s", n.Input, n.Name)
}

// BinOp is a binary arithmetic or concatenation operator. Op values are the
// token kinds PLUS, MINUS, STAR, SLASH, DSLASH (floor division), PERCENT,
// POW (exponentiation) — spec §3 lists Pow/FloorDiv as distinct variants,
// but since every one of them is a strict "two operands, one token, await
// both, combine" shape with no extra fields, they are folded into BinOp's
// Op enum rather than duplicated as separate struct types (see DESIGN.md).
type BinOp struct {
	base
	Op       token.Kind
	A, B Node
}

func NewBinOp(pos token.Position, op token.Kind, a, b Node) *BinOp { return &BinOp{base{pos}, op, a, b} }
func (n *BinOp) Kind() Kind                                        { return KindBinOp }
func (n *BinOp) String() string                                    { return fmt.Sprintf("(%s %s %s)", n.A, n.Op, n.B) }

// UnaryOp is unary minus, unary plus, or `not`.
type UnaryOp struct {
	base
	Op token.Kind
	A  Node
}

func NewUnaryOp(pos token.Position, op token.Kind, a Node) *UnaryOp { return &UnaryOp{base{pos}, op, a} }
func (n *UnaryOp) Kind() Kind                                       { return KindUnaryOp }
func (n *UnaryOp) String() string                                   { return fmt.Sprintf("(%s%s)", n.Op, n.A) }

// Logical is `and`/`or`, short-circuiting (spec §4.4).
type Logical struct {
	base
	Op   token.Kind // KW_AND or KW_OR
	A, B Node
}

func NewLogical(pos token.Position, op token.Kind, a, b Node) *Logical { return &Logical{base{pos}, op, a, b} }
func (n *Logical) Kind() Kind                                          { return KindLogical }
func (n *Logical) String() string                                      { return fmt.Sprintf("(%s %s %s)", n.A, n.Op, n.B) }

// Ternary is `X if C else Y`.
type Ternary struct {
	base
	Cond, Then, Else Node
}

func NewTernary(pos token.Position, cond, then, els Node) *Ternary { return &Ternary{base{pos}, cond, then, els} }
func (n *Ternary) Kind() Kind                                      { return KindTernary }
func (n *Ternary) String() string {
	return fmt.Sprintf("(%s if %s else %s)", n.Then, n.Cond, n.Else)
}

// CompareOp is one link in a chained comparison, e.g. the `< b` in `a < b < c`.
type CompareOp struct {
	Op   token.Kind
	Rhs  Node
}

// Compare is a chainable comparison: a op1 b op2 c ... (spec §3, §4.4:
// "elementwise: a op1 b op2 c is (a op1 b) and (b op2 c), with b evaluated
// once").
type Compare struct {
	base
	First Node
	Rest  []CompareOp
}

func NewCompare(pos token.Position, first Node, rest []CompareOp) *Compare {
	return &Compare{base{pos}, first, rest}
}
func (n *Compare) Kind() Kind { return KindCompare }
func (n *Compare) String() string {
	var sb strings.Builder
	sb.WriteString(n.First.String())
	for _, r := range n.Rest {
		fmt.Fprintf(&sb, " %s %s", r.Op, r.Rhs)
	}
	return sb.String()
}

// InOp is `item in seq` (or, with Negate, `item not in seq`).
type InOp struct {
	base
	Item, Seq Node
	Negate    bool
}

func NewInOp(pos token.Position, item, seq Node, negate bool) *InOp { return &InOp{base{pos}, item, seq, negate} }
func (n *InOp) Kind() Kind                                          { return KindInOp }
func (n *InOp) String() string {
	if n.Negate {
		return fmt.Sprintf("(%s not in %s)", n.Item, n.Seq)
	}
	return fmt.Sprintf("(%s in %s)", n.Item, n.Seq)
}

// Array is an array/list literal.
type Array struct {
	base
	Items []Node
}

func NewArray(pos token.Position, items []Node) *Array { return &Array{base{pos}, items} }
func (n *Array) Kind() Kind                             { return KindArray }
func (n *Array) String() string {
	parts := make([]string, len(n.Items))
	for i, it := range n.Items {
		parts[i] = it.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// DictPair is one key/value pair of a Dict literal.
type DictPair struct {
	Key   Node
	Value Node
}

// Dict is a mapping literal.
type Dict struct {
	base
	Pairs []DictPair
}

func NewDict(pos token.Position, pairs []DictPair) *Dict { return &Dict{base{pos}, pairs} }
func (n *Dict) Kind() Kind                                { return KindDict }
func (n *Dict) String() string {
	parts := make([]string, len(n.Pairs))
	for i, p := range n.Pairs {
		parts[i] = fmt.Sprintf("%s: %s", p.Key, p.Value)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Group is a comma-separated parenthesized expression list; its value is
// the last item, but every item is evaluated (spec §4.2 "Comma groups").
type Group struct {
	base
	Items []Node
}

func NewGroup(pos token.Position, items []Node) *Group { return &Group{base{pos}, items} }
func (n *Group) Kind() Kind                             { return KindGroup }
func (n *Group) String() string {
	parts := make([]string, len(n.Items))
	for i, it := range n.Items {
		parts[i] = it.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
