// Package fragment implements the Report Fragment Model of spec section
// 4.2: immutable, composable report nodes produced by analyzers and
// rendered into the final report.
package fragment

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies a fragment's semantic role, driving rendering prefixes
// and default ordering.
type Type int

const (
	TypeSection Type = iota
	TypeHeader
	TypeInfo
	TypeWarning
	TypeError
	TypeConditional
)

func (t Type) String() string {
	switch t {
	case TypeHeader:
		return "Header"
	case TypeInfo:
		return "Info"
	case TypeWarning:
		return "Warning"
	case TypeError:
		return "Error"
	case TypeConditional:
		return "Conditional"
	default:
		return "Section"
	}
}

// Visibility controls which fragments a rendering pass includes.
type Visibility int

const (
	VisibilityNormal Visibility = iota
	VisibilityVerboseOnly
	VisibilityHidden
)

// Fragment is an immutable report node. Zero-value Fragment (empty
// title, empty content, no children) is the canonical Empty value — see
// Empty().
type Fragment struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	Title      string
	Content    string
	Type       Type
	Visibility Visibility
	Order      int
	Children   []Fragment
	Metadata   map[string]string
}

// HasContent reports whether the fragment carries anything renderable:
// non-empty title or content, or at least one child with content.
func (f Fragment) HasContent() bool {
	if f.Title != "" || f.Content != "" {
		return true
	}
	for _, c := range f.Children {
		if c.HasContent() {
			return true
		}
	}
	return false
}

// Empty returns the canonical empty fragment. Empty-absorbing under +
// and Compose per spec section 4.2.
func Empty() Fragment {
	return Fragment{}
}

func newFragment(title, content string, typ Type, order int) Fragment {
	return Fragment{
		ID:        uuid.New(),
		CreatedAt: now(),
		Title:     title,
		Content:   content,
		Type:      typ,
		Order:     order,
	}
}

// now is isolated so tests can substitute a fixed clock if ever needed;
// production always uses wall time.
var now = time.Now

// Header produces a top-level title fragment. order defaults to 0 when
// not supplied via WithOrder.
func Header(title string) Fragment {
	return newFragment(title, "", TypeHeader, 0)
}

// Section produces a generic grouping fragment with the given order.
func Section(title, content string, order int) Fragment {
	return newFragment(title, content, TypeSection, order)
}

// Info produces an informational leaf fragment, order=200 by default.
func Info(title, content string) Fragment {
	return newFragment(title, content, TypeInfo, 200)
}

// Warning produces a warning leaf fragment, order=50 by default.
func Warning(title, content string) Fragment {
	return newFragment(title, content, TypeWarning, 50)
}

// Error produces an error leaf fragment, order=10 by default.
func Error(title, content string) Fragment {
	return newFragment(title, content, TypeError, 10)
}

// Conditional tags a fragment with restricted visibility, e.g. for
// verbose-only sections.
func Conditional(f Fragment, visibility Visibility) Fragment {
	f.Visibility = visibility
	f.Type = TypeConditional
	return f
}

// WithChildren produces a parent fragment carrying the given children,
// itself contributing no standalone content.
func WithChildren(title string, children []Fragment, order int) Fragment {
	f := newFragment(title, "", TypeSection, order)
	f.Children = children
	return f
}

// WithOrder returns a copy of f with Order replaced.
func (f Fragment) WithOrder(order int) Fragment {
	f.Order = order
	return f
}

// WithMetadata returns a copy of f with key=value merged into Metadata.
func (f Fragment) WithMetadata(key, value string) Fragment {
	meta := make(map[string]string, len(f.Metadata)+1)
	for k, v := range f.Metadata {
		meta[k] = v
	}
	meta[key] = value
	f.Metadata = meta
	return f
}

// WithHeader prefixes f with a Header fragment unless f is empty, in
// which case it is a no-op and the empty fragment is returned unchanged
// (spec section 4.2: "WithHeader(title): no-op on empty fragments").
func WithHeader(f Fragment, title string) Fragment {
	if !f.HasContent() {
		return f
	}
	return WithChildren(title, []Fragment{f}, f.Order)
}

// Plus combines two fragments. Either side being empty returns the other
// unchanged (empty-absorbing, per spec section 4.2 and the testable
// property "(A + Empty) = A").
func Plus(a, b Fragment) Fragment {
	aEmpty, bEmpty := !a.HasContent(), !b.HasContent()
	switch {
	case aEmpty && bEmpty:
		return Empty()
	case aEmpty:
		return b
	case bEmpty:
		return a
	}
	return WithChildren("", []Fragment{a, b}, minOrder(a.Order, b.Order))
}

func minOrder(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Compose flattens a sequence of fragments, dropping empty ones, and
// returns Empty if all were empty.
func Compose(fragments ...Fragment) Fragment {
	var nonEmpty []Fragment
	for _, f := range fragments {
		if f.HasContent() {
			nonEmpty = append(nonEmpty, f)
		}
	}
	if len(nonEmpty) == 0 {
		return Empty()
	}
	if len(nonEmpty) == 1 {
		return nonEmpty[0]
	}
	return WithChildren("", nonEmpty, nonEmpty[0].Order)
}

// ConditionalSection evaluates contentFn; if the result is empty, the
// header is suppressed and Empty is returned (spec section 4.2).
func ConditionalSection(contentFn func() Fragment, headerFn func() string) Fragment {
	content := contentFn()
	if !content.HasContent() {
		return Empty()
	}
	return WithHeader(content, headerFn())
}
