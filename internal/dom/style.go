package dom

import (
	"strings"

	"github.com/aymerick/douceur/parser"
)

type declaration struct {
	property  string
	value     string
	important bool
}

// parseInline splits a style attribute into its declarations, keeping the
// attribute order. Input douceur rejects is split by hand.
func parseInline(inline string) []declaration {
	inline = strings.TrimSpace(inline)
	if inline == "" {
		return nil
	}
	if decls, err := parser.ParseDeclarations(inline); err == nil {
		out := make([]declaration, 0, len(decls))
		for _, d := range decls {
			if d == nil {
				continue
			}
			out = append(out, declaration{
				property:  strings.ToLower(strings.TrimSpace(d.Property)),
				value:     strings.TrimSpace(d.Value),
				important: d.Important,
			})
		}
		return out
	}

	var out []declaration
	for _, part := range strings.Split(inline, ";") {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}
		value := strings.TrimSpace(kv[1])
		important := false
		if strings.HasSuffix(strings.ToLower(value), "!important") {
			important = true
			value = strings.TrimSpace(value[:len(value)-len("!important")])
		}
		out = append(out, declaration{
			property:  strings.ToLower(strings.TrimSpace(kv[0])),
			value:     value,
			important: important,
		})
	}
	return out
}

func lookup(decls []declaration, prop string) string {
	// Later declarations win, as in the cascade.
	for i := len(decls) - 1; i >= 0; i-- {
		if decls[i].property == prop {
			return decls[i].value
		}
	}
	return ""
}

// assign replaces prop in place or appends it. An empty value removes it.
func assign(decls []declaration, prop, value string) []declaration {
	out := decls[:0]
	replaced := false
	for _, d := range decls {
		if d.property != prop {
			out = append(out, d)
			continue
		}
		if value == "" || replaced {
			continue
		}
		d.value = value
		d.important = false
		out = append(out, d)
		replaced = true
	}
	if !replaced && value != "" {
		out = append(out, declaration{property: prop, value: value})
	}
	return out
}

func renderInline(decls []declaration) string {
	var b strings.Builder
	for i, d := range decls {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(d.property)
		b.WriteString(": ")
		b.WriteString(d.value)
		if d.important {
			b.WriteString(" !important")
		}
		b.WriteByte(';')
	}
	return b.String()
}
