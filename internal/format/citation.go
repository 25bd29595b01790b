package format

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/scholarhub/scholarhub-mcp/internal/backend"
)

// Citation styles accepted by Citation.
const (
	StyleAPA     = "apa"
	StyleMLA     = "mla"
	StyleChicago = "chicago"
	StyleBibTeX  = "bibtex"
)

var CitationStyles = []string{StyleAPA, StyleMLA, StyleChicago, StyleBibTeX}

// Citation renders p in the requested style.
func Citation(style string, p backend.Paper) (string, error) {
	switch strings.ToLower(strings.TrimSpace(style)) {
	case StyleAPA, "":
		return apa(p), nil
	case StyleMLA:
		return mla(p), nil
	case StyleChicago:
		return chicago(p), nil
	case StyleBibTeX:
		return bibtex(p), nil
	default:
		return "", fmt.Errorf("unsupported citation style %q", style)
	}
}

func apa(p backend.Paper) string {
	names := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		names = append(names, apaName(a.Name))
	}
	var b strings.Builder
	b.WriteString(joinAuthors(names, "&"))
	fmt.Fprintf(&b, " (%s). %s.", yearOf(p), sentenceEnd(p.Title))
	if p.Venue != "" {
		fmt.Fprintf(&b, " *%s*.", p.Venue)
	}
	if link := paperLink(p); link != "" {
		b.WriteString(" " + link)
	}
	return b.String()
}

func mla(p backend.Paper) string {
	var author string
	switch len(p.Authors) {
	case 0:
		author = "Unknown"
	case 1:
		author = invertedName(p.Authors[0].Name)
	case 2:
		author = invertedName(p.Authors[0].Name) + ", and " + strings.TrimSpace(p.Authors[1].Name)
	default:
		author = invertedName(p.Authors[0].Name) + ", et al"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s. \"%s.\"", strings.TrimSuffix(author, "."), sentenceEnd(p.Title))
	if p.Venue != "" {
		fmt.Fprintf(&b, " *%s*,", p.Venue)
	}
	fmt.Fprintf(&b, " %s.", yearOf(p))
	if link := paperLink(p); link != "" {
		b.WriteString(" " + link + ".")
	}
	return b.String()
}

func chicago(p backend.Paper) string {
	names := make([]string, 0, len(p.Authors))
	for i, a := range p.Authors {
		if i == 0 {
			names = append(names, invertedName(a.Name))
			continue
		}
		names = append(names, strings.TrimSpace(a.Name))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s. %s. \"%s.\"", joinAuthors(names, "and"), strings.TrimSuffix(yearOf(p), "."), sentenceEnd(p.Title))
	if p.Venue != "" {
		fmt.Fprintf(&b, " *%s*.", p.Venue)
	}
	if link := paperLink(p); link != "" {
		b.WriteString(" " + link + ".")
	}
	return b.String()
}

func bibtex(p backend.Paper) string {
	names := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		names = append(names, strings.TrimSpace(a.Name))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "@article{%s,\n", bibKey(p))
	fmt.Fprintf(&b, "  title = {%s},\n", strings.TrimSpace(p.Title))
	if len(names) > 0 {
		fmt.Fprintf(&b, "  author = {%s},\n", strings.Join(names, " and "))
	}
	if p.Venue != "" {
		fmt.Fprintf(&b, "  journal = {%s},\n", p.Venue)
	}
	fmt.Fprintf(&b, "  year = {%s},\n", yearOf(p))
	if p.DOI != "" {
		fmt.Fprintf(&b, "  doi = {%s},\n", p.DOI)
	}
	if p.URL != "" {
		fmt.Fprintf(&b, "  url = {%s},\n", p.URL)
	}
	b.WriteString("}")
	return b.String()
}

// bibKey is the first author's surname, the year and the first title word.
func bibKey(p backend.Paper) string {
	var parts []string
	if len(p.Authors) > 0 {
		parts = append(parts, surname(p.Authors[0].Name))
	}
	parts = append(parts, yearOf(p))
	if words := strings.Fields(p.Title); len(words) > 0 {
		parts = append(parts, words[0])
	}
	key := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, strings.Join(parts, ""))
	if key == "" {
		return strings.ToLower(p.ID)
	}
	return key
}

func apaName(name string) string {
	fields := strings.Fields(name)
	if len(fields) < 2 {
		return strings.TrimSpace(name)
	}
	initials := make([]string, 0, len(fields)-1)
	for _, f := range fields[:len(fields)-1] {
		r := []rune(f)
		initials = append(initials, string(unicode.ToUpper(r[0]))+".")
	}
	return fields[len(fields)-1] + ", " + strings.Join(initials, " ")
}

func invertedName(name string) string {
	fields := strings.Fields(name)
	if len(fields) < 2 {
		return strings.TrimSpace(name)
	}
	return fields[len(fields)-1] + ", " + strings.Join(fields[:len(fields)-1], " ")
}

func surname(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func joinAuthors(names []string, conj string) string {
	switch len(names) {
	case 0:
		return "Unknown"
	case 1:
		return names[0]
	case 2:
		return names[0] + ", " + conj + " " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", " + conj + " " + names[len(names)-1]
	}
}

func yearOf(p backend.Paper) string {
	if p.Year > 0 {
		return fmt.Sprintf("%d", p.Year)
	}
	if !p.CreatedAt.IsZero() {
		return fmt.Sprintf("%d", p.CreatedAt.Year())
	}
	return "n.d."
}

func paperLink(p backend.Paper) string {
	if p.DOI != "" {
		return "https://doi.org/" + strings.TrimPrefix(p.DOI, "https://doi.org/")
	}
	return p.URL
}

func sentenceEnd(title string) string {
	return strings.TrimRight(strings.TrimSpace(title), ".")
}
