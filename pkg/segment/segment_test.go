package segment

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplit_BasicPunctuation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "three_sentence_paragraph",
			text: "Alpha beta gamma. Alpha is a letter. Beta is also a letter.",
			want: []string{"Alpha beta gamma.", "Alpha is a letter.", "Beta is also a letter."},
		},
		{
			name: "single_sentence_no_terminator",
			text: "just a fragment with no period",
			want: []string{"just a fragment with no period"},
		},
		{
			name: "empty_text_yields_nothing",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Split(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestSplit_ShortLineTitleBlock(t *testing.T) {
	t.Parallel()

	text := "Project Kickoff\nThis is the body paragraph that follows the short title line and continues on."
	got := Split(text)
	if len(got) < 2 {
		t.Fatalf("expected title to split from body, got %v", got)
	}
	if got[0] != "Project Kickoff" {
		t.Fatalf("expected first fragment to be the title, got %q", got[0])
	}
}

func TestSplit_FiltersSingleCharacterFragments(t *testing.T) {
	t.Parallel()

	got := Split("A. This is a real sentence with content.")
	for _, s := range got {
		if len([]rune(s)) <= 1 {
			t.Fatalf("fragment %q should have been filtered", s)
		}
	}
}

func TestSplit_Idempotent(t *testing.T) {
	t.Parallel()

	text := "First sentence here. Second sentence follows.\nThird one on its own line that is long enough."
	first := Split(text)
	second := Split(strings.Join(first, "\n"))

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Split not idempotent: first=%v second=%v", first, second)
	}
}

func TestSplit_PreservesOrder(t *testing.T) {
	t.Parallel()

	text := "Zebra starts the text. Apple comes second. Mango comes third."
	got := Split(text)
	if len(got) != 3 {
		t.Fatalf("expected 3 sentences, got %d: %v", len(got), got)
	}
	if !strings.HasPrefix(got[0], "Zebra") || !strings.HasPrefix(got[1], "Apple") || !strings.HasPrefix(got[2], "Mango") {
		t.Fatalf("order not preserved: %v", got)
	}
}
