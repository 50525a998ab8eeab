// Package ini is a small and rather tolerant INI parser.
//
//	language = go ; comment
//
//	[section]
//	name = untrusted
//
// Properties before the first section are globals. Comments start with ';'
// and run to the end of the line. Names and values must not be empty;
// values are trimmed.
package ini

import (
	"bytes"

	"github.com/pior/untrusted"
)

// Pair is a property.
type Pair struct {
	Name  string
	Value string
}

// Section is a named group of properties.
type Section struct {
	Name       string
	Properties []Pair
}

// Document is a parsed INI file.
type Document struct {
	Globals  []Pair
	Sections []Section
}

// Parse parses a complete document.
func Parse(in untrusted.Input) (Document, error) {
	return untrusted.Parse(in.Bound(), Read)
}

// Read reads a document up to the end of the input.
func Read(r *untrusted.Reader) (Document, error) {
	var doc Document
	skipSpaceOrComment(r)
	c, ok := r.PeekByteOK()
	if !ok {
		return doc, nil
	}

	var err error
	if c != '[' {
		if doc.Globals, err = ReadProperties(r); err != nil {
			return Document{}, err
		}
	}
	for !r.AtEnd() {
		s, err := ReadSection(r)
		if err != nil {
			return Document{}, err
		}
		doc.Sections = append(doc.Sections, s)
	}
	return doc, nil
}

// ReadProperties reads properties until a section header or the end of the
// input.
func ReadProperties(r *untrusted.Reader) ([]Pair, error) {
	var out []Pair
	skipSpaceOrComment(r)
	for {
		if c, ok := r.PeekByteOK(); !ok || c == '[' {
			return out, nil
		}
		var p Pair
		err := r.Context("property", func(r *untrusted.Reader) error {
			skipSpaceOrComment(r)
			if err := r.Context("name", func(r *untrusted.Reader) error {
				name, err := nonEmptyText(r, "non-empty name", isBareText)
				p.Name = name.String()
				return err
			}); err != nil {
				return err
			}
			skipSpaceOrCommentOnLine(r)

			if err := r.ConsumeByte('='); err != nil {
				return err
			}

			skipSpaceOrCommentOnLine(r)
			if err := r.Context("value", func(r *untrusted.Reader) error {
				value, err := nonEmptyText(r, "non-empty value", isValueText)
				p.Value = value.TrimSpace().String()
				return err
			}); err != nil {
				return err
			}
			skipSpaceOrComment(r)
			return nil
		})
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
}

// ReadSection reads a section header and its properties.
func ReadSection(r *untrusted.Reader) (Section, error) {
	var s Section
	skipSpaceOrComment(r)
	if err := r.ConsumeByte('['); err != nil {
		return Section{}, err
	}
	if err := r.Context("section name", func(r *untrusted.Reader) error {
		name, err := nonEmptyText(r, "non-empty section name", isSectionText)
		s.Name = name.TrimSpace().String()
		return err
	}); err != nil {
		return Section{}, err
	}
	if err := r.ConsumeByte(']'); err != nil {
		return Section{}, err
	}

	_, err := untrusted.TryExpect(r, "newline after section", func(r *untrusted.Reader) (struct{}, bool, error) {
		past := r.TakeWhile(isSpace)
		return struct{}{}, r.AtEnd() || bytes.IndexByte(past.Bytes(), '\n') >= 0, nil
	})
	if err != nil {
		return Section{}, err
	}

	if s.Properties, err = ReadProperties(r); err != nil {
		return Section{}, err
	}
	return s, nil
}

func nonEmptyText(r *untrusted.Reader, expected string, pred func(byte) bool) (untrusted.Text, error) {
	return untrusted.TryExpect(r, expected, func(r *untrusted.Reader) (untrusted.Text, bool, error) {
		run, ok := r.TakeWhile(pred).NonEmpty()
		if !ok {
			return untrusted.Text{}, false, nil
		}
		t, err := run.Text()
		return t, err == nil, err
	})
}

func skipSpaceOrComment(r *untrusted.Reader) {
	for skipComment(r)+r.SkipWhile(isSpace) > 0 {
		continue
	}
}

func skipSpaceOrCommentOnLine(r *untrusted.Reader) {
	for skipComment(r)+r.SkipWhile(isLineSpace) > 0 {
		continue
	}
}

func skipComment(r *untrusted.Reader) int {
	if r.PeekEq(commentStart) {
		return r.SkipWhile(notNewline)
	}
	return 0
}

var commentStart = []byte{';'}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

func isLineSpace(c byte) bool {
	return c != '\n' && isSpace(c)
}

func notNewline(c byte) bool {
	return c != '\n'
}

func isBareText(c byte) bool {
	return !isSpace(c) && c != '=' && c != '['
}

func isValueText(c byte) bool {
	return c != ';' && c != '\n' && c != '=' && c != '['
}

func isSectionText(c byte) bool {
	return c != ']' && c != '\n'
}
