package render

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitSections(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []Section
	}{
		{name: "plain text", text: "Just a reply.", want: nil},
		{name: "single pair", text: "Intro** * **Go** * **A language", want: []Section{{Heading: "Go", Description: "A language"}}},
		{
			name: "multiple pairs",
			text: "** * ** Speed ** * ** Compiles fast ** * ** Safety ** * ** Memory safe",
			want: []Section{
				{Heading: "Speed", Description: "Compiles fast"},
				{Heading: "Safety", Description: "Memory safe"},
			},
		},
		{name: "trailing heading", text: "x** * **Only heading", want: []Section{{Heading: "Only heading"}}},
		{name: "blank heading skipped", text: "x** * **  ** * **orphan** * **H** * **D", want: []Section{{Heading: "H", Description: "D"}}},
		{name: "delimiter only", text: "** * **", want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, SplitSections(tc.text))
		})
	}
}
