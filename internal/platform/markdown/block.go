package markdown

import "strings"

// Block marks a generated region of a note. Rewriting a note replaces only
// the region, so text the user added around it survives.
type Block struct {
	Name string
}

func (b Block) Start() string { return "<!-- focustrail:" + b.Name + ":start -->" }
func (b Block) End() string   { return "<!-- focustrail:" + b.Name + ":end -->" }

func (b Block) Wrap(generated string) string {
	return b.Start() + "\n" + strings.TrimRight(generated, "\n") + "\n" + b.End()
}

// Replace swaps the region in body for generated, appending the region when
// body has none.
func (b Block) Replace(body, generated string) string {
	block := b.Wrap(generated)
	start := strings.Index(body, b.Start())
	end := strings.Index(body, b.End())
	if start >= 0 && end > start {
		return body[:start] + block + body[end+len(b.End()):]
	}
	switch {
	case strings.TrimSpace(body) == "":
		return block + "\n"
	case strings.HasSuffix(body, "\n"):
		return body + "\n" + block + "\n"
	default:
		return body + "\n\n" + block + "\n"
	}
}

// Table renders a pipe table. Pipes inside cells are escaped.
func Table(header []string, rows [][]string) string {
	b := strings.Builder{}
	writeRow := func(cells []string) {
		b.WriteString("|")
		for _, c := range cells {
			b.WriteString(" ")
			b.WriteString(strings.ReplaceAll(strings.ReplaceAll(c, "|", `\|`), "\n", " "))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}
	writeRow(header)
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}
