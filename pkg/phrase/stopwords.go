package phrase

// englishStopwords is a small, process-global, read-only stop-word list
// for English noun-phrase filtering. Initialized once at package load;
// never mutated afterward.
var englishStopwords = buildSet(
	"a", "an", "the", "and", "or", "but", "if", "of", "in", "on", "at", "by",
	"for", "with", "about", "against", "between", "into", "through", "during",
	"before", "after", "above", "below", "to", "from", "up", "down", "out",
	"off", "over", "under", "again", "further", "then", "once", "here",
	"there", "when", "where", "why", "how", "all", "any", "both", "each",
	"few", "more", "most", "other", "some", "such", "no", "nor", "not",
	"only", "own", "same", "so", "than", "too", "very", "is", "are", "was",
	"were", "be", "been", "being", "have", "has", "had", "having", "do",
	"does", "did", "doing", "this", "that", "these", "those", "it", "its",
	"i", "me", "my", "we", "our", "you", "your", "he", "him", "his", "she",
	"her", "they", "them", "their", "as", "also", "can", "will", "just",
)

// koreanEndingChars marks Korean verb/adjective stems disallowed as the
// final character of an extracted run (§4.2): 다, 요, 죠, 며, 지, 만.
var koreanEndingChars = map[rune]struct{}{
	'다': {}, '요': {}, '죠': {}, '며': {}, '지': {}, '만': {},
}

// koreanParticles are common trailing particles stripped from a Korean
// token before it is considered a candidate noun phrase. This is a
// heuristic substitute for a full part-of-speech tagger.
var koreanParticles = []string{
	"은", "는", "이", "가", "을", "를", "에", "에서", "으로", "로", "와", "과",
	"의", "도", "만", "까지", "부터", "에게", "한테", "께", "마다",
}

func buildSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func isEnglishStopword(word string) bool {
	_, ok := englishStopwords[word]
	return ok
}
