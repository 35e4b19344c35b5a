package metrics

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/huangsam/xrays/internal/contract"
	"github.com/huangsam/xrays/schema"
	"github.com/src-d/enry/v2"
)

// quoteRule describes a string literal delimiter. Comment markers inside a
// literal are ignored. A literal without multiline ends at the end of its line.
type quoteRule struct {
	delim     string
	escape    bool // a backslash escapes the next byte
	multiline bool
}

// closing returns the offset just past the delimiter that ends a literal
// opened before text, or -1 when it stays open.
func (q *quoteRule) closing(text string) int {
	for i := 0; i < len(text); i++ {
		if q.escape && text[i] == '\\' {
			i++
			continue
		}
		if strings.HasPrefix(text[i:], q.delim) {
			return i + len(q.delim)
		}
	}
	return -1
}

var (
	doubleQuote = quoteRule{delim: `"`, escape: true}
	singleQuote = quoteRule{delim: "'", escape: true}
	rawQuote    = quoteRule{delim: "'"}
	goBacktick  = quoteRule{delim: "`", multiline: true}
	jsBacktick  = quoteRule{delim: "`", escape: true, multiline: true}
)

// commentSyntax defines comment markers and string literals for a language.
type commentSyntax struct {
	line       []string
	blockStart string
	blockEnd   string
	quotes     []quoteRule
}

var (
	cQuotes = []quoteRule{doubleQuote, singleQuote}

	cStyle     = commentSyntax{line: []string{"//"}, blockStart: "/*", blockEnd: "*/", quotes: cQuotes}
	goStyle    = commentSyntax{line: []string{"//"}, blockStart: "/*", blockEnd: "*/", quotes: []quoteRule{doubleQuote, singleQuote, goBacktick}}
	jsStyle    = commentSyntax{line: []string{"//"}, blockStart: "/*", blockEnd: "*/", quotes: []quoteRule{doubleQuote, singleQuote, jsBacktick}}
	hashStyle  = commentSyntax{line: []string{"#"}, quotes: []quoteRule{doubleQuote}}
	shellStyle = commentSyntax{line: []string{"#"}, quotes: []quoteRule{doubleQuote, rawQuote}}
	dashStyle  = commentSyntax{line: []string{"--"}, quotes: []quoteRule{{delim: `"`}}}
	cssStyle   = commentSyntax{blockStart: "/*", blockEnd: "*/", quotes: cQuotes}
	sqlStyle   = commentSyntax{line: []string{"--"}, blockStart: "/*", blockEnd: "*/", quotes: []quoteRule{rawQuote, {delim: `"`}}}
	xmlStyle   = commentSyntax{blockStart: "<!--", blockEnd: "-->"}
	plainStyle = commentSyntax{}
)

// syntaxByLanguage maps enry language names to their comment markers.
// Languages absent from the map are skipped and measure as zero.
//
// A few rules are approximations: Python treats every triple-quoted string
// as a docstring comment, Ruby =begin and =end are matched anywhere on a
// line rather than only at its start, Rust and Haskell leave single quotes
// alone because of lifetimes and primed names, and triple-quoted or raw
// string forms of other languages are read as ordinary literals.
var syntaxByLanguage = map[string]commentSyntax{
	"C":           cStyle,
	"C#":          cStyle,
	"C++":         cStyle,
	"Dart":        cStyle,
	"Go":          goStyle,
	"Groovy":      cStyle,
	"Java":        cStyle,
	"JavaScript":  jsStyle,
	"Kotlin":      cStyle,
	"Objective-C": cStyle,
	"Rust":        {line: []string{"//"}, blockStart: "/*", blockEnd: "*/", quotes: []quoteRule{doubleQuote}},
	"Scala":       cStyle,
	"Swift":       cStyle,
	"TSX":         jsStyle,
	"TypeScript":  jsStyle,

	"Protocol Buffer": cStyle,
	"SCSS":            cStyle,
	"Less":            cStyle,

	"PHP":    {line: []string{"//", "#"}, blockStart: "/*", blockEnd: "*/", quotes: cQuotes},
	"Python": {line: []string{"#"}, blockStart: `"""`, blockEnd: `"""`, quotes: cQuotes},
	"Ruby":   {line: []string{"#"}, blockStart: "=begin", blockEnd: "=end", quotes: cQuotes},

	"Perl":       shellStyle,
	"Shell":      shellStyle,
	"Makefile":   hashStyle,
	"Dockerfile": hashStyle,
	"YAML":       hashStyle,
	"TOML":       hashStyle,
	"R":          {line: []string{"#"}, quotes: cQuotes},
	"Elixir":     {line: []string{"#"}, quotes: cQuotes},
	"CMake":      hashStyle,

	"SQL":     sqlStyle,
	"PLpgSQL": sqlStyle,
	"Haskell": {line: []string{"--"}, blockStart: "{-", blockEnd: "-}", quotes: []quoteRule{doubleQuote}},
	"Lua":     {line: []string{"--"}, blockStart: "--[[", blockEnd: "]]", quotes: cQuotes},
	"Ada":     dashStyle,

	"CSS":      cssStyle,
	"HTML":     xmlStyle,
	"XML":      xmlStyle,
	"Vue":      xmlStyle,
	"Markdown": xmlStyle,

	"JSON":             plainStyle,
	"Text":             plainStyle,
	"reStructuredText": plainStyle,
}

// scanState carries an open block comment or multi-line literal across lines.
type scanState struct {
	inBlock bool
	quote   *quoteRule
}

// NativeCounter measures snapshots in-process. Languages are detected with
// enry; lines are classified as blank, comment or code with a per-language
// comment table.
type NativeCounter struct{}

var _ contract.MetricsCounter = &NativeCounter{} // Compile-time check

// NewNativeCounter creates a new in-process metrics counter.
func NewNativeCounter() *NativeCounter {
	return &NativeCounter{}
}

// Backend implements the MetricsCounter interface.
func (n *NativeCounter) Backend() schema.MetricsBackend {
	return schema.NativeMetricsBackend
}

// Count implements the MetricsCounter interface.
func (n *NativeCounter) Count(ctx context.Context, name string, content []byte) (schema.SnapshotMetrics, error) {
	if err := ctx.Err(); err != nil {
		return schema.SnapshotMetrics{}, err
	}
	if len(content) == 0 || enry.IsBinary(content) {
		return schema.SnapshotMetrics{}, nil
	}
	syntax, ok := syntaxByLanguage[enry.GetLanguage(filepath.Base(name), content)]
	if !ok {
		return schema.SnapshotMetrics{}, nil
	}
	return syntax.measure(splitLines(content)), nil
}

// measure classifies each line and sums indentation over comment-stripped code.
func (s commentSyntax) measure(lines []string) schema.SnapshotMetrics {
	var m schema.SnapshotMetrics
	var st scanState
	for _, line := range lines {
		code, commented := s.strip(line, &st)
		switch {
		case strings.TrimSpace(code) != "":
			m.LinesCode++
			m.Indentation += leadingWidth(code)
		case commented:
			m.LinesComment++
		}
	}
	return m
}

// token kinds found by nextToken.
const (
	noToken = iota
	blockToken
	lineToken
	quoteToken
)

// strip removes comments from one line and reports whether any were present.
// String literals are kept as code.
func (s commentSyntax) strip(line string, st *scanState) (string, bool) {
	var code strings.Builder
	commented := false
	rest := line
	for rest != "" {
		if st.inBlock {
			commented = true
			end := strings.Index(rest, s.blockEnd)
			if end < 0 {
				return code.String(), true
			}
			rest = rest[end+len(s.blockEnd):]
			st.inBlock = false
			continue
		}
		if st.quote != nil {
			end := st.quote.closing(rest)
			if end < 0 {
				code.WriteString(rest)
				break
			}
			code.WriteString(rest[:end])
			rest = rest[end:]
			st.quote = nil
			continue
		}

		idx, kind, quote := s.nextToken(rest)
		if kind == noToken {
			code.WriteString(rest)
			break
		}
		switch kind {
		case quoteToken:
			code.WriteString(rest[:idx+len(quote.delim)])
			rest = rest[idx+len(quote.delim):]
			st.quote = quote
		case lineToken:
			code.WriteString(rest[:idx])
			st.endLine()
			return code.String(), true
		case blockToken:
			code.WriteString(rest[:idx])
			commented = true
			rest = rest[idx+len(s.blockStart):]
			st.inBlock = true
		}
	}
	st.endLine()
	return code.String(), commented
}

// endLine drops a single-line literal left open at the end of a line.
func (st *scanState) endLine() {
	if st.quote != nil && !st.quote.multiline {
		st.quote = nil
	}
}

// nextToken finds the earliest comment marker or literal opening in text.
// On a tie a block start wins over a line marker, so "--[[" is not read as
// "--", and over a quote, so a Python docstring is not read as a string.
func (s commentSyntax) nextToken(text string) (int, int, *quoteRule) {
	best, kind := -1, noToken
	var quote *quoteRule
	if s.blockStart != "" {
		if i := strings.Index(text, s.blockStart); i >= 0 {
			best, kind = i, blockToken
		}
	}
	for _, marker := range s.line {
		if i := strings.Index(text, marker); i >= 0 && (best < 0 || i < best) {
			best, kind = i, lineToken
		}
	}
	for i := range s.quotes {
		q := &s.quotes[i]
		if j := strings.Index(text, q.delim); j >= 0 && (best < 0 || j < best) {
			best, kind, quote = j, quoteToken, q
		}
	}
	return best, kind, quote
}
