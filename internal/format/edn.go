package format

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// WriteEDN prints v as EDN: objects become maps with keyword keys, arrays
// become vectors, null becomes nil.
func WriteEDN(w io.Writer, v any, pretty bool) error {
	x, err := generic(v)
	if err != nil {
		return err
	}
	p := ednPrinter{pretty: pretty}
	p.value(x, 0)
	p.b.WriteByte('\n')
	_, err = io.WriteString(w, p.b.String())
	return err
}

type ednPrinter struct {
	b      strings.Builder
	pretty bool
}

func (p *ednPrinter) value(v any, depth int) {
	switch t := v.(type) {
	case nil:
		p.b.WriteString("nil")
	case bool:
		p.b.WriteString(strconv.FormatBool(t))
	case int64:
		p.b.WriteString(strconv.FormatInt(t, 10))
	case float64:
		p.b.WriteString(strconv.FormatFloat(t, 'f', -1, 64))
	case string:
		p.b.WriteString(strconv.Quote(t))
	case []any:
		p.seq('[', ']', len(t), depth, func(i int) { p.value(t[i], depth+1) })
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		p.seq('{', '}', len(keys), depth, func(i int) {
			p.b.WriteString(keyword(keys[i]))
			p.b.WriteByte(' ')
			p.value(t[keys[i]], depth+1)
		})
	default:
		p.b.WriteString(strconv.Quote(fmt.Sprint(v)))
	}
}

func (p *ednPrinter) seq(open, close byte, n, depth int, item func(int)) {
	p.b.WriteByte(open)
	for i := 0; i < n; i++ {
		switch {
		case p.pretty:
			p.b.WriteByte('\n')
			p.b.WriteString(strings.Repeat("  ", depth+1))
		case i > 0:
			p.b.WriteByte(' ')
		}
		item(i)
	}
	if p.pretty && n > 0 {
		p.b.WriteByte('\n')
		p.b.WriteString(strings.Repeat("  ", depth))
	}
	p.b.WriteByte(close)
}

// keyword turns a JSON key into an EDN keyword, snake_case to kebab-case.
func keyword(k string) string {
	k = strings.TrimSpace(k)
	k = strings.NewReplacer("_", "-", " ", "-").Replace(k)
	if k == "" {
		return `:_`
	}
	return ":" + k
}
