// Package graphbuild implements the chunk graph builder (C8): given a
// finalized chunk, it scores and groups the chunk's candidate phrases,
// emits up to five new keyword nodes rooted at the chunk's parent keyword,
// and derives edge labels from the sentences where two keywords co-occur.
package graphbuild

import (
	"context"
	"sort"
	"strings"

	"github.com/weavegraph/weavegraph/pkg/chunker"
	"github.com/weavegraph/weavegraph/pkg/common"
	"github.com/weavegraph/weavegraph/pkg/scorer"
)

// maxNewTopLevelNodes bounds how many new phrase nodes one chunk may
// contribute (§4.5 step 5).
const maxNewTopLevelNodes = 5

// maxChildNodes bounds how many group members a representative phrase may
// pull in as child nodes (§4.5 step 5).
const maxChildNodes = 5

// maxRelationLen bounds the derived edge label length (§9).
const maxRelationLen = 80

// Input bundles everything Build needs for one finalized chunk.
type Input struct {
	Chunk              common.Chunk
	ParentKeyword      string
	SentencesByIndex   map[int]common.Sentence
	PhrasesBySentence  map[int]map[string]struct{}
	Corpus             *scorer.Corpus
	Embedder           scorer.Embedder
	AlreadyMade        *chunker.AlreadyMade
	SourceID           string
}

// Output is what one chunk contributes to the document's node/edge stream.
type Output struct {
	Nodes []common.KeywordNode
	Edges []common.Edge
}

// Build runs C8 over one finalized chunk. If the parent keyword's base
// name does not appear among the chunk's phrases, emission is aborted for
// this chunk (§4.5 step 4) and Build returns an empty, non-error Output:
// per §8.8 a fit/emission failure in one chunk must never block siblings.
func Build(ctx context.Context, in Input) (Output, error) {
	out := Output{}

	phraseInfo := scorer.BuildPhraseInfo(in.Chunk.Indices, in.PhrasesBySentence)
	if len(phraseInfo) == 0 {
		return out, nil
	}

	parentBase := common.BaseName(in.ParentKeyword)
	if parentBase == "" {
		return out, nil
	}
	if _, present := phraseInfo[parentBase]; !present {
		return out, nil
	}

	scored, err := scorer.ScoreAll(ctx, phraseInfo, in.Corpus, in.Embedder, scorer.DefaultWeights())
	if err != nil {
		return out, err
	}

	groups := scorer.GroupNearDuplicates(scored)
	repGroup := make(map[string]scorer.Group, len(groups))
	for _, g := range groups {
		repGroup[g.Representative.Phrase] = g
	}

	out.Nodes = append(out.Nodes, common.KeywordNode{
		Name:     parentBase,
		Label:    parentBase,
		SourceID: in.SourceID,
		Descriptions: []common.DescriptionRecord{{
			Data:            descriptionFor(parentBase, in),
			SourceID:        in.SourceID,
			SentenceIndices: in.Chunk.Indices,
		}},
		OriginalSentences: originalSentencesFor(in.Chunk.Indices, in),
	})

	emitted := 0
	for _, p := range scored {
		if emitted >= maxNewTopLevelNodes {
			break
		}
		if p.Phrase == parentBase {
			continue
		}

		label := edgeLabel(parentBase, p.Phrase, in)
		out.Edges = append(out.Edges, common.Edge{
			Source:   parentBase,
			Target:   p.Phrase,
			Relation: label,
			SourceID: in.SourceID,
		})

		alreadyHad := in.AlreadyMade.Contains(p.Phrase)
		if !alreadyHad {
			out.Nodes = append(out.Nodes, common.KeywordNode{
				Name:     p.Phrase,
				Label:    p.Phrase,
				SourceID: in.SourceID,
				Descriptions: []common.DescriptionRecord{{
					Data:            descriptionFor(p.Phrase, in),
					SourceID:        in.SourceID,
					SentenceIndices: p.SentenceIndices,
				}},
				OriginalSentences: originalSentencesFor(p.SentenceIndices, in),
			})
			in.AlreadyMade.Add(p.Phrase)
			emitted++
		}

		if g, isRep := repGroup[p.Phrase]; isRep {
			childCount := 0
			for _, member := range g.Members {
				if childCount >= maxChildNodes {
					break
				}
				if in.AlreadyMade.Contains(member.Phrase) {
					continue
				}
				out.Nodes = append(out.Nodes, common.KeywordNode{
					Name:     member.Phrase,
					Label:    member.Phrase,
					SourceID: in.SourceID,
					Descriptions: []common.DescriptionRecord{{
						Data:            descriptionFor(member.Phrase, in),
						SourceID:        in.SourceID,
						SentenceIndices: member.SentenceIndices,
					}},
					OriginalSentences: originalSentencesFor(member.SentenceIndices, in),
				})
				out.Edges = append(out.Edges, common.Edge{
					Source:   p.Phrase,
					Target:   member.Phrase,
					Relation: edgeLabel(p.Phrase, member.Phrase, in),
					SourceID: in.SourceID,
				})
				in.AlreadyMade.Add(member.Phrase)
				childCount++
			}
		}
	}

	return out, nil
}

func descriptionFor(phrase string, in Input) string {
	for _, idx := range in.PhraseSentenceIndices(phrase) {
		if s, ok := in.SentencesByIndex[idx]; ok {
			return s.Text
		}
	}
	return ""
}

// PhraseSentenceIndices returns the sentence indices, within this chunk,
// that contain phrase.
func (in Input) PhraseSentenceIndices(phrase string) []int {
	var out []int
	for _, idx := range in.Chunk.Indices {
		if _, ok := in.PhrasesBySentence[idx][phrase]; ok {
			out = append(out, idx)
		}
	}
	return out
}

func originalSentencesFor(indices []int, in Input) []common.OriginalSentenceRecord {
	var out []common.OriginalSentenceRecord
	for _, idx := range indices {
		s, ok := in.SentencesByIndex[idx]
		if !ok {
			continue
		}
		out = append(out, common.OriginalSentenceRecord{
			Text:            s.Text,
			SourceID:        in.SourceID,
			SentenceIndices: []int{idx},
		})
	}
	return out
}

// edgeLabel derives the relation string from the shortest sentence where
// source and target co-occur (§4.5, §9): the result is a substring of that
// sentence, length-bounded to maxRelationLen.
func edgeLabel(source, target string, in Input) string {
	var candidates []string
	for _, idx := range in.Chunk.Indices {
		phrases := in.PhrasesBySentence[idx]
		if _, hasSource := phrases[source]; !hasSource {
			continue
		}
		if _, hasTarget := phrases[target]; !hasTarget {
			continue
		}
		if s, ok := in.SentencesByIndex[idx]; ok {
			candidates = append(candidates, s.Text)
		}
	}
	if len(candidates) == 0 {
		return truncate(source+" "+target, maxRelationLen)
	}

	sort.Slice(candidates, func(i, j int) bool { return len(candidates[i]) < len(candidates[j]) })
	return truncate(candidates[0], maxRelationLen)
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
