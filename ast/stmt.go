package ast

import (
	"strings"

	"github.com/cascada-go/cascada/token"
)

// Program is the root of a parsed template or script: a sequence of
// statements evaluated sequentially at the top level (spec §4.4
// "sequential(xs)... Used for statement sequences").
type Program struct {
	base
	Body []Node
}

func NewProgram(body []Node) *Program { return &Program{base{}, body} }
func (n *Program) Kind() Kind         { return KindProgram }
func (n *Program) String() string     { return "Program" }

// RawText is literal template text emitted verbatim.
type RawText struct {
	base
	Text string
}

func NewRawText(pos token.Position, text string) *RawText { return &RawText{base{pos}, text} }
func (n *RawText) Kind() Kind                               { return KindRawText }
func (n *RawText) String() string                           { return n.Text }

// Output is `{{ expr }}`: evaluate expr, stringify, and emit.
type Output struct {
	base
	Expr Node
}

func NewOutput(pos token.Position, expr Node) *Output { return &Output{base{pos}, expr} }
func (n *Output) Kind() Kind                           { return KindOutput }
func (n *Output) String() string                       { return "{{ " + n.Expr.String() + " }}" }

// IfBranch is one `if`/`elif` arm.
type IfBranch struct {
	Cond Node
	Body []Node
}

// If is `{% if %}...{% elif %}...{% else %}...{% endif %}`.
type If struct {
	base
	Branches []IfBranch
	Else     []Node // nil if no else clause
}

func NewIf(pos token.Position, branches []IfBranch, els []Node) *If { return &If{base{pos}, branches, els} }
func (n *If) Kind() Kind                                             { return KindIf }
func (n *If) String() string                                         { return "{% if %}" }

// For is `{% for targets in iter %}body{% else %}elseBody{% endfor %}`
// (spec §3 "For always introduces a frame..."). Targets has length 1 for
// `for x in seq` and length 2 for `for k, v in seq`.
type For struct {
	base
	Targets  []string
	Iter     Node
	Body     []Node
	ElseBody []Node // run when Iter yields zero items; nil if no else clause
}

func NewFor(pos token.Position, targets []string, iter Node, body, elseBody []Node) *For {
	return &For{base{pos}, targets, iter, body, elseBody}
}
func (n *For) Kind() Kind     { return KindFor }
func (n *For) String() string { return "{% for " + strings.Join(n.Targets, ", ") + " in ... %}" }

// Set is `{% set targets = expr %}` (template dialect, always shadows
// innermost frame) or the script dialect's `var`/bare-assign/`extern`
// forms, distinguished by Mode.
type SetMode int

const (
	SetShadow   SetMode = iota // template `{% set %}`: always innermost, shadowing allowed
	SetDeclare                 // script `var x = expr`: new name, rejects shadowing
	SetAssign                  // script `x = expr`: must already be declared
	SetExtern                  // script `extern a, b`: bound from caller context, no initializer
)

// Set binds one evaluated expression to every name in Targets (spec §4.3
// "Multi-target assignment a, b = expr binds every target to the same
// evaluated value").
type Set struct {
	base
	Targets []string
	Expr    Node // nil for SetExtern
	Mode    SetMode
}

func NewSet(pos token.Position, targets []string, expr Node, mode SetMode) *Set {
	return &Set{base{pos}, targets, expr, mode}
}
func (n *Set) Kind() Kind     { return KindSet }
func (n *Set) String() string { return "{% set " + strings.Join(n.Targets, ", ") + " %}" }

// SetBlock is `{% set name %}body{% endset %}`: render body into a capture
// slot and bind the flattened string to name (spec §4.5 "Capture slots").
type SetBlock struct {
	base
	Name string
	Body []Node
}

func NewSetBlock(pos token.Position, name string, body []Node) *SetBlock {
	return &SetBlock{base{pos}, name, body}
}
func (n *SetBlock) Kind() Kind     { return KindSetBlock }
func (n *SetBlock) String() string { return "{% set " + n.Name + " %}...{% endset %}" }

// MacroParam is one formal parameter, with an optional default expression.
type MacroParam struct {
	Name    string
	Default Node // nil if required
}

// Macro is `{% macro name(params) %}body{% endmacro %}` (spec §3 "Macro
// captures the frame at definition site").
type Macro struct {
	base
	Name   string
	Params []MacroParam
	Body   []Node
}

func NewMacro(pos token.Position, name string, params []MacroParam, body []Node) *Macro {
	return &Macro{base{pos}, name, params, body}
}
func (n *Macro) Kind() Kind     { return KindMacro }
func (n *Macro) String() string { return "{% macro " + n.Name + " %}" }

// CallBlock is `{% call M(args) %}body{% endcall %}` (spec §4.6): the body
// compiles to an anonymous caller macro bound as `caller` inside M.
type CallBlock struct {
	base
	MacroCall  *Call
	CallerBody []Node
}

func NewCallBlock(pos token.Position, macroCall *Call, callerBody []Node) *CallBlock {
	return &CallBlock{base{pos}, macroCall, callerBody}
}
func (n *CallBlock) Kind() Kind     { return KindCallBlock }
func (n *CallBlock) String() string { return "{% call " + n.MacroCall.String() + " %}" }

// Include is `{% include expr %}`, optionally with `ignore missing`.
type Include struct {
	base
	Expr          Node
	IgnoreMissing bool
}

func NewInclude(pos token.Position, expr Node, ignoreMissing bool) *Include {
	return &Include{base{pos}, expr, ignoreMissing}
}
func (n *Include) Kind() Kind     { return KindInclude }
func (n *Include) String() string { return "{% include " + n.Expr.String() + " %}" }

// Extends is `{% extends expr %}`; must be the first emitting statement
// (spec §4.2).
type Extends struct {
	base
	Expr Node
}

func NewExtends(pos token.Position, expr Node) *Extends { return &Extends{base{pos}, expr} }
func (n *Extends) Kind() Kind                            { return KindExtends }
func (n *Extends) String() string                        { return "{% extends " + n.Expr.String() + " %}" }

// Block is `{% block name %}body{% endblock %}`.
type Block struct {
	base
	Name string
	Body []Node
}

func NewBlock(pos token.Position, name string, body []Node) *Block { return &Block{base{pos}, name, body} }
func (n *Block) Kind() Kind                                          { return KindBlock }
func (n *Block) String() string                                      { return "{% block " + n.Name + " %}" }

// Super is `{{ super() }}` inside a child block: renders the parent
// block's body in the child's frame (spec §4.7).
type Super struct {
	base
}

func NewSuper(pos token.Position) *Super { return &Super{base{pos}} }
func (n *Super) Kind() Kind              { return KindSuper }
func (n *Super) String() string          { return "super()" }

// SwitchCase is one `{% case expr %}` arm.
type SwitchCase struct {
	Expr Node
	Body []Node
}

// Switch is `{% switch disc %}{% case v1 %}...{% default %}...{% endswitch %}`.
type Switch struct {
	base
	Disc    Node
	Cases   []SwitchCase
	Default []Node // nil if no default arm
}

func NewSwitch(pos token.Position, disc Node, cases []SwitchCase, def []Node) *Switch {
	return &Switch{base{pos}, disc, cases, def}
}
func (n *Switch) Kind() Kind     { return KindSwitch }
func (n *Switch) String() string { return "{% switch " + n.Disc.String() + " %}" }

// Do is `{% do expr %}`: evaluate expr for its side effects, discard the value.
type Do struct {
	base
	Expr Node
}

func NewDo(pos token.Position, expr Node) *Do { return &Do{base{pos}, expr} }
func (n *Do) Kind() Kind                       { return KindDo }
func (n *Do) String() string                   { return "{% do " + n.Expr.String() + " %}" }

// Capture is the script dialect's `capture :handle ... endcapture`: body
// runs against a fresh structured-data accumulator, whose final value is
// bound to handle (spec §4.9).
type Capture struct {
	base
	Handle string
	Body   []Node
}

func NewCapture(pos token.Position, handle string, body []Node) *Capture {
	return &Capture{base{pos}, handle, body}
}
func (n *Capture) Kind() Kind     { return KindCapture }
func (n *Capture) String() string { return "capture :" + n.Handle }

// ExtensionCall is a registered tag extension invocation: `{% name args %}`
// or `{% name args %}body{% endname %}` (spec §4.2 "Extensions", §4.8).
type ExtensionCall struct {
	base
	Tag  string
	Args []Node
	Body []Node // nil if the extension did not request a body
}

func NewExtensionCall(pos token.Position, tag string, args []Node, body []Node) *ExtensionCall {
	return &ExtensionCall{base{pos}, tag, args, body}
}
func (n *ExtensionCall) Kind() Kind     { return KindExtensionCall }
func (n *ExtensionCall) String() string { return "{% " + n.Tag + " %}" }

// --- Script-dialect structured-data command statements (spec §3, §4.9) ---

// DataOp distinguishes the three handle-path command forms.
type DataOp int

const (
	DataSet DataOp = iota // @handle.path.set(expr) / @handle.path = expr
	DataPush               // @handle.path.push(expr)
)

// DataCommand is `@handle.path.op(expr)`. Path is the dotted chain after the
// handle, e.g. for `@data.a.b` Path is []string{"a", "b"}.
type DataCommand struct {
	base
	Handle string
	Path   []string
	Op     DataOp
	Expr   Node
}

func NewDataCommand(pos token.Position, handle string, path []string, op DataOp, expr Node) *DataCommand {
	return &DataCommand{base{pos}, handle, path, op, expr}
}
func (n *DataCommand) Kind() Kind     { return KindDataCommand }
func (n *DataCommand) String() string { return "@" + n.Handle + "." + strings.Join(n.Path, ".") }
