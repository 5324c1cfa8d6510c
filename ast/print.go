package ast

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

func dumpf(w io.Writer, indentLevel int, typ fmt.Stringer, properties ...string) error {
	indent := strings.Repeat("    ", indentLevel)
	if _, err := fmt.Fprintf(w, "%s- *%s*\n", indent, typ); err != nil {
		return err
	}
	for i := 0; i < len(properties); i += 2 {
		key, value := properties[i], ""
		if i+1 < len(properties) {
			value = properties[i+1]
		}
		value = strconv.Quote(value)
		value = value[1 : len(value)-1]
		if _, err := fmt.Fprintf(w, "%s    - %s: `%s`\n", indent, key, value); err != nil {
			return err
		}
	}
	return nil
}

func nodesOf(ns []Node) []interface{} {
	out := make([]interface{}, len(ns))
	for i, n := range ns {
		out[i] = n
	}
	return out
}

func dump(w io.Writer, indentLevel int, n interface{}) error {
	if n == nil {
		return nil
	}

	node, ok := n.(Node)
	if !ok {
		return fmt.Errorf("ast.Dump: %T is not a Node", n)
	}
	typ := node.Kind()
	var properties []string
	var children []interface{}

	switch n := node.(type) {
	case *Program:
		children = nodesOf(n.Body)
	case *RawText:
		properties = []string{"Text", n.Text}
	case *Output:
		children = []interface{}{n.Expr}
	case *Literal:
		properties = []string{"Value", n.String()}
	case *Symbol:
		properties = []string{"Name", n.Name}
	case *Lookup:
		if n.Key != nil {
			children = []interface{}{n.Target, n.Key}
		} else {
			properties = []string{"Attr", n.Attr}
			children = []interface{}{n.Target}
		}
	case *Call:
		children = append(children, n.Callee)
		for _, a := range n.Args {
			children = append(children, a.Value)
		}
	case *FilterCall:
		properties = []string{"Name", n.Name}
		children = append(children, n.Input)
		for _, a := range n.Args {
			children = append(children, a.Value)
		}
	case *TestCall:
		properties = []string{"Name", n.Name}
		children = append(children, n.Input)
		for _, a := range n.Args {
			children = append(children, a.Value)
		}
	case *BinOp:
		properties = []string{"Op", n.Op.String()}
		children = []interface{}{n.A, n.B}
	case *UnaryOp:
		properties = []string{"Op", n.Op.String()}
		children = []interface{}{n.A}
	case *Logical:
		properties = []string{"Op", n.Op.String()}
		children = []interface{}{n.A, n.B}
	case *Ternary:
		children = []interface{}{n.Then, n.Cond, n.Else}
	case *Compare:
		children = append(children, n.First)
		for _, r := range n.Rest {
			children = append(children, r.Rhs)
		}
	case *InOp:
		children = []interface{}{n.Item, n.Seq}
	case *Array:
		children = nodesOf(n.Items)
	case *Dict:
		for _, p := range n.Pairs {
			children = append(children, p.Key, p.Value)
		}
	case *Group:
		children = nodesOf(n.Items)
	case *If:
		for _, b := range n.Branches {
			children = append(children, b.Cond)
			children = append(children, nodesOf(b.Body)...)
		}
		children = append(children, nodesOf(n.Else)...)
	case *For:
		properties = []string{"Targets", strings.Join(n.Targets, ",")}
		children = append(children, n.Iter)
		children = append(children, nodesOf(n.Body)...)
		children = append(children, nodesOf(n.ElseBody)...)
	case *Set:
		properties = []string{"Targets", strings.Join(n.Targets, ",")}
		if n.Expr != nil {
			children = []interface{}{n.Expr}
		}
	case *SetBlock:
		properties = []string{"Name", n.Name}
		children = nodesOf(n.Body)
	case *Macro:
		properties = []string{"Name", n.Name}
		children = nodesOf(n.Body)
	case *CallBlock:
		children = append(children, n.MacroCall)
		children = append(children, nodesOf(n.CallerBody)...)
	case *Include:
		children = []interface{}{n.Expr}
	case *Extends:
		children = []interface{}{n.Expr}
	case *Block:
		properties = []string{"Name", n.Name}
		children = nodesOf(n.Body)
	case *Super:
	case *Switch:
		children = append(children, n.Disc)
		for _, c := range n.Cases {
			children = append(children, c.Expr)
			children = append(children, nodesOf(c.Body)...)
		}
		children = append(children, nodesOf(n.Default)...)
	case *Do:
		children = []interface{}{n.Expr}
	case *Capture:
		properties = []string{"Handle", n.Handle}
		children = nodesOf(n.Body)
	case *ExtensionCall:
		properties = []string{"Tag", n.Tag}
		children = append(children, nodesOf(n.Args)...)
		children = append(children, nodesOf(n.Body)...)
	case *DataCommand:
		properties = []string{"Handle", n.Handle, "Path", strings.Join(n.Path, ".")}
		children = []interface{}{n.Expr}
	}

	if err := dumpf(w, indentLevel, typ, properties...); err != nil {
		return err
	}
	for _, c := range children {
		if err := dump(w, indentLevel+1, c); err != nil {
			return err
		}
	}
	return nil
}

// Dump prints a textual representation of the tree rooted at n to w, the
// way the teacher's ast.Dump renders its YAML/template trees as indented
// Markdown bullets — useful for golden-file tests and debugging.
func Dump(w io.Writer, n Node) error {
	return dump(w, 0, n)
}
