package phrase

import (
	"testing"

	"github.com/weavegraph/weavegraph/pkg/common"
)

func TestExtract_English(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want map[string]struct{}
	}{
		{
			name: "drops_stopwords_and_short_tokens",
			text: "The quick fox runs.",
			want: map[string]struct{}{"quick": {}, "fox": {}, "runs": {}},
		},
		{
			name: "joins_adjacent_content_words",
			text: "quantum computing research",
			want: map[string]struct{}{"quantum computing research": {}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text, common.LangEnglish)
			if len(got) != len(tt.want) {
				t.Fatalf("Extract(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for k := range tt.want {
				if _, ok := got[k]; !ok {
					t.Fatalf("Extract(%q) missing %q, got %v", tt.text, k, got)
				}
			}
		})
	}
}

func TestExtract_Other(t *testing.T) {
	t.Parallel()

	got := Extract("  こんにちは  ", common.LangOther)
	if len(got) != 1 {
		t.Fatalf("expected single fallback token, got %v", got)
	}
	if _, ok := got["こんにちは"]; !ok {
		t.Fatalf("expected trimmed sentence as token, got %v", got)
	}
}

func TestExtract_Korean_FiltersShortAndBadEndings(t *testing.T) {
	t.Parallel()

	got := Extract("사과는 맛있다 그리고 간다", common.LangKorean)
	if _, ok := got["간다"]; ok {
		t.Fatalf("expected verb ending in 다 to be filtered, got %v", got)
	}
}

func TestExtract_Dedup(t *testing.T) {
	t.Parallel()

	got := Extract("apple apple banana", common.LangEnglish)
	if len(got) != 1 {
		t.Fatalf("expected run-joined dedup to single phrase, got %v", got)
	}
}
