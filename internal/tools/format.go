package tools

import (
	"sort"
	"strings"
)

// Formatter renders the data of one tool into a text section.
// ok is false when the data is not of the type the formatter expects.
type Formatter func(Data) (section string, ok bool)

// Typed builds a Formatter for a concrete data type, so the data type a
// tool produces and the renderer for it are checked at compile time.
func Typed[T Data](render func(T) string) Formatter {
	return func(d Data) (string, bool) {
		v, ok := d.(T)
		if !ok {
			return "", false
		}
		return render(v), true
	}
}

// Formatters maps tool ids to their formatter.
type Formatters map[ID]Formatter

// Format renders the successful results in order. Results without a
// formatter, failed results and type mismatches are skipped.
func (f Formatters) Format(results []Result) []string {
	var sections []string
	for _, res := range results {
		if !res.Success || res.Data == nil {
			continue
		}
		format, ok := f[res.Tool]
		if !ok {
			continue
		}
		section, ok := format(res.Data)
		if !ok {
			continue
		}
		if section = strings.TrimSpace(section); section != "" {
			sections = append(sections, section)
		}
	}
	return sections
}

// Merge appends the rendered sections to base, separated by blank lines.
// base itself is never rewritten.
func (f Formatters) Merge(base string, results []Result) string {
	sections := f.Format(results)
	if len(sections) == 0 {
		return base
	}
	return base + "\n\n" + strings.Join(sections, "\n\n")
}

// IDs returns the ids with a formatter, sorted.
func (f Formatters) IDs() []ID {
	ids := make([]ID, 0, len(f))
	for id := range f {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
