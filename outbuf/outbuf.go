// Package outbuf implements the output assembly guarantee (spec §4.5): an
// ordered tree of write-once slots that can be filled concurrently but
// always flushes in source order, so concurrent evaluation of independent
// subexpressions produces output byte-identical to a serial left-to-right
// evaluator (spec Invariant 1).
package outbuf

import (
	"context"
	"fmt"
	"strings"

	"github.com/cascada-go/cascada/deferred"
)

// slotKind distinguishes the four kinds of entries spec §3 lists for the
// output buffer: literal text, a deferred string, a nested buffer (capture),
// or a structured-data command record (script mode).
type slotKind int

const (
	kindText slotKind = iota
	kindDeferred
	kindBuffer
	kindCommand
)

// Command is a structured-data write emitted by the script dialect's
// @handle.path commands (spec §3 "Structured-data tree", §4.9). The
// evaluator awaits each statement's right-hand side and then appends one
// Command per statement in source order, so the mutations to the
// structured-data tree apply in the order the statements were written.
type Command struct {
	Apply func(data any) (any, error)
}

type slot struct {
	kind  slotKind
	text  string
	value *deferred.Value
	child *Buffer
	cmd   Command
}

// Buffer is one ordered sequence of slots: the template root buffer, a
// standalone buffer for a {% call %} body or a `set ... endset` capture
// (spec §4.5 "Capture slots"), or a child buffer reserved in place for an
// {% include %}.
type Buffer struct {
	slots []slot
}

// New returns an empty output buffer.
func New() *Buffer { return &Buffer{} }

// WriteText appends a literal text fragment — used for RawText nodes and
// for the string result of a tag extension.
func (b *Buffer) WriteText(s string) {
	b.slots = append(b.slots, slot{kind: kindText, text: s})
}

// ReserveDeferred allocates a fresh output slot at the moment of a
// statement's lexical appearance (spec §4.5) holding v, which may still be
// pending while evaluation continues past it in source order; Flush awaits
// it in slot order. v must eventually settle to a string (or something stringable; the
// evaluator is responsible for having already applied str() semantics).
func (b *Buffer) ReserveDeferred(v *deferred.Value) {
	b.slots = append(b.slots, slot{kind: kindDeferred, value: v})
}

// ReserveChild opens and returns a nested buffer, used for {% include %}
// output, so the parent's flush recurses into it in place.
func (b *Buffer) ReserveChild() *Buffer {
	child := &Buffer{}
	b.slots = append(b.slots, slot{kind: kindBuffer, child: child})
	return child
}

// ReserveCommand appends a structured-data command (script dialect).
func (b *Buffer) ReserveCommand(cmd Command) {
	b.slots = append(b.slots, slot{kind: kindCommand, cmd: cmd})
}

// Flush awaits every deferred slot in insertion order and concatenates the
// result, depth-first, into a single string (spec §4.5: "the final flush
// awaits slots in insertion order"). Command slots are ignored — Flush is
// only meaningful for template-dialect rendering; script-dialect rendering
// drains commands via FlushData instead.
func (b *Buffer) Flush(ctx context.Context) (string, error) {
	var sb strings.Builder
	if err := b.flushInto(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (b *Buffer) flushInto(ctx context.Context, sb *strings.Builder) error {
	for _, s := range b.slots {
		switch s.kind {
		case kindText:
			sb.WriteString(s.text)
		case kindDeferred:
			r, err := deferred.Await(ctx, s.value)
			if err != nil {
				return err
			}
			sb.WriteString(toDisplayString(r))
		case kindBuffer:
			if err := s.child.flushInto(ctx, sb); err != nil {
				return err
			}
		case kindCommand:
			// structured-data commands carry no textual representation.
		}
	}
	return nil
}

// FlushData replays every command slot, depth-first in source order,
// against an accumulator value starting from seed (normally an empty
// mapping), returning the final structured-data tree (spec §4.9). Text and
// deferred-string slots are ignored; the script dialect does not mix the
// two output kinds within one render.
func (b *Buffer) FlushData(ctx context.Context, seed any) (any, error) {
	data := seed
	for _, s := range b.slots {
		switch s.kind {
		case kindCommand:
			next, err := s.cmd.Apply(data)
			if err != nil {
				return nil, err
			}
			data = next
		case kindBuffer:
			// Child buffers are not replayed. Script-mode rendering reserves
			// none: a `capture :handle` block runs into its own standalone
			// buffer and the evaluator binds that buffer's result.
		}
	}
	return data, nil
}

func toDisplayString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
