// Package iniconfig implements the INI validator of spec section 4.4: a
// tolerant line parser, a per-file section cache, and a read-only rule
// table evaluated against parsed values.
package iniconfig

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"github.com/evildarkarchon/scanner111/internal/scanerrors"
)

// Document is the parsed form of one INI file: case-insensitive on both
// section and key names.
type Document struct {
	// sections maps lowercased section name -> (lowercased key -> original value).
	sections map[string]map[string]string
	// ParseErrors records malformed lines; parsing never aborts on them.
	ParseErrors []string
}

func newDocument() *Document {
	return &Document{sections: make(map[string]map[string]string)}
}

// Get returns the raw string value for (section, key), case-insensitively.
func (d *Document) Get(section, key string) (string, bool) {
	sec, ok := d.sections[strings.ToLower(section)]
	if !ok {
		return "", false
	}
	val, ok := sec[strings.ToLower(key)]
	return val, ok
}

// HasSetting reports whether (section, key) is present at all.
func (d *Document) HasSetting(section, key string) bool {
	_, ok := d.Get(section, key)
	return ok
}

// Sections returns the set of section names this document defines.
func (d *Document) Sections() []string {
	out := make([]string, 0, len(d.sections))
	for s := range d.sections {
		out = append(out, s)
	}
	return out
}

// parse reads a tolerant INI document: "[section]" headers, "key=value"
// assignments, ";" or "#" comments, and blank lines. Malformed lines are
// recorded in ParseErrors and otherwise skipped — parsing never fails.
func parse(r *bufio.Scanner) *Document {
	doc := newDocument()
	currentSection := ""
	doc.sections[currentSection] = map[string]string{}

	lineNo := 0
	for r.Scan() {
		lineNo++
		line := strings.TrimSpace(r.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			currentSection = strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			if _, ok := doc.sections[currentSection]; !ok {
				doc.sections[currentSection] = map[string]string{}
			}
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			doc.ParseErrors = append(doc.ParseErrors, formatParseError(lineNo, line))
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		if key == "" {
			doc.ParseErrors = append(doc.ParseErrors, formatParseError(lineNo, line))
			continue
		}
		doc.sections[currentSection][key] = value
	}
	return doc
}

func formatParseError(lineNo int, line string) string {
	return "line " + itoa(lineNo) + ": " + line
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Cache parses and caches INI documents by absolute file path so repeated
// GetValue/HasSetting calls across analyzers don't re-read the file.
type Cache struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewCache constructs an empty Cache.
func NewCache() *Cache {
	return &Cache{docs: make(map[string]*Document)}
}

// Load parses path if not already cached, returning the cached Document.
func (c *Cache) Load(path string) (*Document, error) {
	c.mu.RLock()
	if doc, ok := c.docs[path]; ok {
		c.mu.RUnlock()
		return doc, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, scanerrors.Wrap(scanerrors.KindNotFound, "iniconfig.Load", err)
	}
	defer f.Close()

	doc := parse(bufio.NewScanner(f))

	c.mu.Lock()
	c.docs[path] = doc
	c.mu.Unlock()
	return doc, nil
}

// GetValue returns the raw string value for (file, section, key).
func (c *Cache) GetValue(file, section, key string) (string, bool, error) {
	doc, err := c.Load(file)
	if err != nil {
		return "", false, err
	}
	val, ok := doc.Get(section, key)
	return val, ok, nil
}

// GetStringValue is an alias of GetValue kept for parity with the
// caller-facing API named in spec section 4.4.
func (c *Cache) GetStringValue(file, section, key string) (string, bool, error) {
	return c.GetValue(file, section, key)
}

// HasSetting reports whether (file, section, key) is present.
func (c *Cache) HasSetting(file, section, key string) (bool, error) {
	doc, err := c.Load(file)
	if err != nil {
		return false, err
	}
	return doc.HasSetting(section, key), nil
}

// ClearCache discards all cached documents.
func (c *Cache) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = make(map[string]*Document)
}
