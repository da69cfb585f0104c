// Package diff compares DNA sections word by word.
package diff

import (
	"strings"

	"github.com/aryann/difflib"

	"branddna/pkg/schema"
	"branddna/pkg/utils"
)

type ChangeType int

const (
	Unchanged ChangeType = iota
	Added
	Removed
	Modified
)

func (c ChangeType) String() string {
	switch c {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	}
	return "unchanged"
}

type Op int

const (
	Equal Op = iota
	Insert
	Delete
)

type WordDelta struct {
	Op   Op
	Text string
}

type StringDiff struct {
	Old    string
	New    string
	Deltas []WordDelta
}

// Changed reports whether any word was inserted or deleted. Whitespace
// only edits do not count.
func (d StringDiff) Changed() bool {
	for _, w := range d.Deltas {
		if w.Op != Equal && strings.TrimSpace(w.Text) != "" {
			return true
		}
	}
	return false
}

type SectionDiff struct {
	Title string
	State ChangeType
	Body  StringDiff
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Sections pairs sections by title and diffs their bodies. The result
// follows the order of newS, with removed sections appended.
func Sections(oldS, newS []schema.Section) []SectionDiff {
	old := make(map[string]schema.Section, len(oldS))
	for _, s := range oldS {
		old[norm(s.Title)] = s
	}

	out := make([]SectionDiff, 0, len(newS))
	seen := make(map[string]bool, len(newS))
	for _, n := range newS {
		k := norm(n.Title)
		seen[k] = true
		o, ok := old[k]
		if !ok {
			out = append(out, SectionDiff{Title: n.Title, State: Added, Body: Text("", n.Body)})
			continue
		}
		body := Text(o.Body, n.Body)
		state := Unchanged
		if body.Changed() {
			state = Modified
		}
		out = append(out, SectionDiff{Title: n.Title, State: state, Body: body})
	}
	for _, o := range oldS {
		if !seen[norm(o.Title)] {
			out = append(out, SectionDiff{Title: o.Title, State: Removed, Body: Text(o.Body, "")})
		}
	}
	return out
}

// Changed returns the titles of every section that is not unchanged.
func Changed(diffs []SectionDiff) []string {
	var titles []string
	for _, d := range diffs {
		if d.State != Unchanged {
			titles = append(titles, d.Title)
		}
	}
	return titles
}

// Text diffs two strings at word granularity.
func Text(a, b string) StringDiff {
	if a == b {
		return StringDiff{Old: a, New: b, Deltas: []WordDelta{{Op: Equal, Text: a}}}
	}
	recs := difflib.Diff(utils.TokenizeWords(a), utils.TokenizeWords(b))
	deltas := make([]WordDelta, 0, len(recs))
	for _, r := range recs {
		switch r.Delta {
		case difflib.Common:
			deltas = append(deltas, WordDelta{Op: Equal, Text: r.Payload})
		case difflib.LeftOnly:
			deltas = append(deltas, WordDelta{Op: Delete, Text: r.Payload})
		case difflib.RightOnly:
			deltas = append(deltas, WordDelta{Op: Insert, Text: r.Payload})
		}
	}
	return StringDiff{Old: a, New: b, Deltas: coalesceSpaces(deltas)}
}

// coalesceSpaces folds runs of same-op deltas together, absorbing
// unchanged whitespace into the surrounding run.
func coalesceSpaces(in []WordDelta) []WordDelta {
	out := make([]WordDelta, 0, len(in))
	flush := func(op Op, buf *strings.Builder) {
		if buf.Len() == 0 {
			return
		}
		out = append(out, WordDelta{Op: op, Text: buf.String()})
		buf.Reset()
	}
	var curOp Op = -1
	var buf strings.Builder
	for _, d := range in {
		if strings.TrimSpace(d.Text) == "" && d.Op == Equal {
			buf.WriteString(d.Text)
			continue
		}
		if curOp != d.Op && curOp != -1 {
			flush(curOp, &buf)
		}
		curOp = d.Op
		buf.WriteString(d.Text)
	}
	if curOp == -1 {
		curOp = Equal
	}
	flush(curOp, &buf)
	return out
}
