// Package render turns reply text into display blocks.
package render

import "strings"

// SectionDelimiter separates the heading/description parts of a structured
// reply.
const SectionDelimiter = "** * **"

type Section struct {
	Heading     string
	Description string
}

// SplitSections reads text as alternating heading and description parts
// following the first delimiter. Pairs with a blank heading are skipped and a
// trailing heading gets an empty description. No sections means the text
// should be shown as is.
func SplitSections(text string) []Section {
	parts := strings.Split(text, SectionDelimiter)
	if len(parts) < 2 {
		return nil
	}

	var sections []Section
	rest := parts[1:]
	for i := 0; i < len(rest); i += 2 {
		heading := strings.TrimSpace(rest[i])
		if heading == "" {
			continue
		}
		var desc string
		if i+1 < len(rest) {
			desc = strings.TrimSpace(rest[i+1])
		}
		sections = append(sections, Section{Heading: heading, Description: desc})
	}
	return sections
}
