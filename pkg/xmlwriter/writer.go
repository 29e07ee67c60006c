// Package xmlwriter serializes etree documents in the layout Unity's
// generated XML files use: an XML declaration, tab indentation and each
// attribute on its own line.
package xmlwriter

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Options controls the output layout
type Options struct {
	// Indent is repeated once per nesting level. Defaults to a tab.
	Indent string

	// NewLineOnAttributes writes every attribute on its own line, one level
	// deeper than its element
	NewLineOnAttributes bool

	// BOM prefixes the output with a UTF-8 byte order mark
	BOM bool

	// Encoding is the declared encoding. Defaults to "utf-8".
	Encoding string

	// NewLine separates lines. Defaults to "\n".
	NewLine string
}

// DefaultOptions matches the generated dependency files
func DefaultOptions() Options {
	return Options{
		Indent:              "\t",
		NewLineOnAttributes: true,
		BOM:                 true,
		Encoding:            "utf-8",
		NewLine:             "\n",
	}
}

func (o Options) withDefaults() Options {
	if o.Indent == "" {
		o.Indent = "\t"
	}
	if o.Encoding == "" {
		o.Encoding = "utf-8"
	}
	if o.NewLine == "" {
		o.NewLine = "\n"
	}
	return o
}

// Bytes renders the document. Processing instructions named "xml" in the
// document are replaced by the declaration derived from opts.
func Bytes(doc *etree.Document, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, doc, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders the document to w
func Write(w io.Writer, doc *etree.Document, opts Options) error {
	opts = opts.withDefaults()
	p := &printer{opts: opts}

	if opts.BOM {
		p.buf.Write(bom)
	}
	fmt.Fprintf(&p.buf, `<?xml version="1.0" encoding="%s"?>`, opts.Encoding)

	for _, tok := range doc.Child {
		switch t := tok.(type) {
		case *etree.ProcInst:
			if t.Target == "xml" {
				continue
			}
			p.newline(0)
			fmt.Fprintf(&p.buf, "<?%s %s?>", t.Target, t.Inst)
		case *etree.Comment:
			p.newline(0)
			p.comment(t)
		case *etree.Element:
			p.newline(0)
			p.element(t, 0)
		case *etree.CharData:
			// whitespace between top-level tokens is regenerated
		case *etree.Directive:
			p.newline(0)
			fmt.Fprintf(&p.buf, "<!%s>", t.Data)
		}
	}

	_, err := w.Write(p.buf.Bytes())
	return err
}

// WriteFile renders the document to path, creating parent directories
func WriteFile(path string, doc *etree.Document, opts Options) error {
	data, err := Bytes(doc, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

type printer struct {
	buf  bytes.Buffer
	opts Options
}

func (p *printer) newline(depth int) {
	p.buf.WriteString(p.opts.NewLine)
	p.buf.WriteString(strings.Repeat(p.opts.Indent, depth))
}

func (p *printer) comment(c *etree.Comment) {
	p.buf.WriteString("<!--")
	p.buf.WriteString(c.Data)
	p.buf.WriteString("-->")
}

func (p *printer) element(e *etree.Element, depth int) {
	p.buf.WriteByte('<')
	p.buf.WriteString(e.FullTag())

	for i := range e.Attr {
		a := &e.Attr[i]
		if p.opts.NewLineOnAttributes {
			p.newline(depth + 1)
		} else {
			p.buf.WriteByte(' ')
		}
		p.buf.WriteString(a.FullKey())
		p.buf.WriteString(`="`)
		p.buf.WriteString(escapeAttr(a.Value))
		p.buf.WriteByte('"')
	}

	children, text := significantChildren(e)
	if len(children) == 0 && text == "" {
		p.buf.WriteString(" />")
		return
	}

	p.buf.WriteByte('>')
	if len(children) == 0 {
		p.buf.WriteString(escapeText(text))
	} else {
		for _, tok := range children {
			p.newline(depth + 1)
			switch t := tok.(type) {
			case *etree.Element:
				p.element(t, depth+1)
			case *etree.Comment:
				p.comment(t)
			case *etree.CharData:
				p.buf.WriteString(escapeText(t.Data))
			}
		}
		p.newline(depth)
	}

	p.buf.WriteString("</")
	p.buf.WriteString(e.FullTag())
	p.buf.WriteByte('>')
}

// significantChildren drops whitespace-only text. An element whose only
// content is text returns that text instead of tokens.
func significantChildren(e *etree.Element) ([]etree.Token, string) {
	var tokens []etree.Token
	var text strings.Builder
	onlyText := true

	for _, tok := range e.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			if t.IsWhitespace() {
				continue
			}
			text.WriteString(t.Data)
			tokens = append(tokens, t)
		case *etree.Element, *etree.Comment:
			onlyText = false
			tokens = append(tokens, t)
		}
	}

	if onlyText {
		return nil, text.String()
	}
	return tokens, ""
}

var (
	attrEscaper = strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `>`, "&gt;", `"`, "&quot;", "\n", "&#xA;", "\r", "&#xD;", "\t", "&#x9;")
	textEscaper = strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `>`, "&gt;")
)

func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}

func escapeText(s string) string {
	return textEscaper.Replace(s)
}
