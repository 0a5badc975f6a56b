package ini

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
)

// lineReader wraps bufio.Scanner with a one-line pushback slot, needed
// because the multi-line-value rule requires reading one line past the
// continuation block to discover where it ends.
type lineReader struct {
	scanner  *bufio.Scanner
	pushback string
	hasPush  bool
	lineNo   int
}

func newLineReader(data []byte) *lineReader {
	s := bufio.NewScanner(bytes.NewReader(data))
	s.Buffer(make([]byte, 64*1024), 1<<20)
	return &lineReader{scanner: s}
}

func (r *lineReader) next() (string, bool) {
	if r.hasPush {
		r.hasPush = false
		r.lineNo++
		return r.pushback, true
	}
	if !r.scanner.Scan() {
		return "", false
	}
	r.lineNo++
	return r.scanner.Text(), true
}

func (r *lineReader) push(line string) {
	r.pushback = line
	r.hasPush = true
	r.lineNo--
}

type parser struct {
	doc             *Document
	visitedIncludes map[string]bool // canonical paths currently on the include stack
}

// Load reads and parses path, resolving ::include directives relative to
// each file's own directory, then runs the interpolation pass exactly once
// over the fully assembled document.
func (d *Document) Load(path string) error {
	p := &parser{doc: d, visitedIncludes: map[string]bool{}}
	if err := p.loadFile(path, 0); err != nil {
		return err
	}
	return d.resolveAllInterpolations()
}

// LoadBuffer parses data as a standalone document identified by name in
// error messages, then runs the interpolation pass.
func (d *Document) LoadBuffer(data []byte, name string) error {
	p := &parser{doc: d, visitedIncludes: map[string]bool{}}
	if err := p.parseBuffer(data, name, filepath.Dir(name), 0); err != nil {
		return err
	}
	return d.resolveAllInterpolations()
}

func (p *parser) loadFile(path string, depth int) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if p.visitedIncludes[abs] {
		return &Error{File: path, Message: "circular include", Err: ErrCircular}
	}
	if depth > p.doc.maxIncludeDepth {
		return &Error{File: path, Message: "include depth exceeded", Err: ErrCircular}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return &Error{File: path, Message: "cannot read include: " + err.Error(), Err: ErrIO}
	}

	p.visitedIncludes[abs] = true
	defer delete(p.visitedIncludes, abs)

	return p.parseBuffer(data, path, filepath.Dir(path), depth)
}

// parseBuffer parses one file's content into the shared Document, recursing
// into ::include directives as they are encountered.
func (p *parser) parseBuffer(data []byte, fileName, dir string, depth int) error {
	r := newLineReader(data)
	section := ""

	for {
		line, ok := r.next()
		if !ok {
			break
		}
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";"):
			continue

		case strings.HasPrefix(trimmed, "["):
			if !strings.HasSuffix(trimmed, "]") {
				return &Error{File: fileName, Line: r.lineNo, Message: "unterminated section header"}
			}
			section = strings.TrimSpace(trimmed[1 : len(trimmed)-1])

		case strings.HasPrefix(trimmed, "::include"):
			if err := p.handleInclude(trimmed, fileName, dir, depth, r.lineNo); err != nil {
				return err
			}

		default:
			if err := p.handleAssignment(trimmed, &section, fileName, dir, depth, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *parser) handleInclude(trimmed, fileName, dir string, depth, lineNo int) error {
	rest := strings.TrimSpace(trimmed[len("::include"):])
	optional := false
	if strings.HasPrefix(rest, "?") {
		optional = true
		rest = strings.TrimSpace(rest[1:])
	}
	if rest == "" {
		return &Error{File: fileName, Line: lineNo, Message: "::include missing path"}
	}
	incPath := rest
	if !filepath.IsAbs(incPath) {
		incPath = filepath.Join(dir, incPath)
	}
	err := p.loadFile(incPath, depth+1)
	if err == nil {
		p.doc.includeCount++
		return nil
	}
	if optional {
		if _, statErr := os.Stat(incPath); os.IsNotExist(statErr) {
			return nil
		}
	}
	return err
}

func (p *parser) handleAssignment(trimmed string, section *string, fileName, dir string, depth int, r *lineReader) error {
	eq := strings.IndexByte(trimmed, '=')
	if eq < 0 {
		return &Error{File: fileName, Line: r.lineNo, Message: "expected 'key = value': " + trimmed}
	}
	rawKey := strings.TrimSpace(trimmed[:eq])
	rawVal := strings.TrimSpace(trimmed[eq+1:])
	key, typ, isArray := parseKeyDecoration(rawKey)
	lineNo := r.lineNo

	if rawVal == "" {
		rawVal = p.readContinuation(r)
	}

	e := p.doc.newEntry(*section, key)
	e.raw = rawVal
	e.typ = typ
	e.isArray = isArray || (typ == TypeString && strings.Contains(rawVal, "|"))
	e.line = lineNo
	e.file = fileName
	p.doc.put(e)
	return nil
}

// readContinuation consumes every immediately-following line that begins
// with whitespace, stripping that leading whitespace and joining the result
// with newlines. It stops at (and pushes back) the first non-indented,
// non-blank line. Blank lines inside the block are preserved as empty
// continuation lines; trailing blank lines are trimmed.
func (p *parser) readContinuation(r *lineReader) string {
	var lines []string
	for {
		line, ok := r.next()
		if !ok {
			break
		}
		if line != "" && line[0] != ' ' && line[0] != '\t' {
			r.push(line)
			break
		}
		lines = append(lines, strings.TrimSpace(line))
	}
	return strings.Join(trimTrailingBlank(lines), "\n")
}

func trimTrailingBlank(lines []string) []string {
	end := len(lines)
	for end > 0 && lines[end-1] == "" {
		end--
	}
	return lines[:end]
}

// parseKeyDecoration splits "name:hint" and/or a trailing "[]" off a raw
// key, returning the bare key name, the declared type (TypeString if no
// hint or an unrecognized one), and whether an array was forced via "[]".
func parseKeyDecoration(rawKey string) (key string, typ Type, isArray bool) {
	k := rawKey
	if strings.HasSuffix(k, "[]") {
		isArray = true
		k = strings.TrimSuffix(k, "[]")
	}
	if idx := strings.IndexByte(k, ':'); idx >= 0 {
		hint := k[idx+1:]
		if t, ok := parseTypeHint(hint); ok {
			typ = t
		}
		k = k[:idx]
	}
	return k, typ, isArray
}
