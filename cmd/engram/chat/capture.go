package chatcmder

import (
	"strings"

	"github.com/papercomputeco/engram/pkg/memory"
)

// minCaptureLen filters out one-word messages; nothing that short carries
// enough context to be worth a record.
const minCaptureLen = 10

// captureCues map phrasings that signal a durable memory to the record type
// it should land as. Checked in order, so standing requests outrank the
// generic preference and fact cues they sometimes contain.
var captureCues = []struct {
	typ        memory.Type
	importance float64
	cues       []string
}{
	{memory.TypeRequest, 7, []string{
		"please stop", "please don't", "please dont", "can you stop",
		"can you always", "from now on", "going forward", "don't ever",
		"stop sending", "stop using",
	}},
	{memory.TypeMilestone, 9, []string{
		"i got the job", "i got promoted", "got engaged", "we got married",
		"i graduated", "we're having a baby", "bought a house",
		"i quit my job", "adopted a",
	}},
	{memory.TypePreference, 6, []string{
		"i love", "i really like", "i like", "i prefer", "i enjoy",
		"my favorite", "my favourite", "i hate", "i can't stand",
		"i cant stand", "i don't like", "i dont like",
	}},
	{memory.TypeFact, 6, []string{
		"my name is", "i live in", "i moved to", "i work at", "i work as",
		"my birthday", "i'm allergic", "im allergic", "my sister",
		"my brother", "my mom", "my dad", "my partner", "my wife",
		"my husband", "my dog", "my cat",
	}},
	{memory.TypeEvent, 5, []string{
		"today i", "today we", "yesterday", "this morning", "last night",
		"this weekend", "last weekend", "we went to", "i went to",
		"just got back",
	}},
}

// captureWorthy decides whether a chat message should be auto-remembered,
// and as what. It returns the record type, a suggested importance, and
// whether any cue matched.
func captureWorthy(input string) (memory.Type, float64, bool) {
	trimmed := strings.TrimSpace(input)
	if len(trimmed) < minCaptureLen {
		return "", 0, false
	}

	text := strings.ToLower(trimmed)
	for _, group := range captureCues {
		for _, cue := range group.cues {
			if strings.Contains(text, cue) {
				return group.typ, group.importance, true
			}
		}
	}

	return "", 0, false
}

// weightCues pair sentiment phrasings with the emotional weight they carry.
// Strong cues sit above mild ones so "i'm so happy" lands at +3 rather
// than the +2 a bare "happy" earns.
var weightCues = []struct {
	weight float64
	cues   []string
}{
	{3, []string{
		"i'm so happy", "im so happy", "amazing", "wonderful", "thrilled",
		"best day", "great news", "i love", "over the moon",
	}},
	{-3, []string{
		"devastated", "heartbroken", "i hate", "terrible", "awful",
		"worst day", "furious", "miserable",
	}},
	{2, []string{
		"happy", "glad", "excited", "fun", "haha", "lol", "proud",
	}},
	{-2, []string{
		"sad", "worried", "anxious", "stressed", "overwhelmed", "tired",
		"frustrated", "annoyed", "upset", "lonely",
	}},
}

// weighInput estimates the emotional weight of a message from its wording.
// Messages with no sentiment cue weigh zero and leave the persona's mood
// to age on its own.
func weighInput(input string) float64 {
	text := strings.ToLower(input)
	for _, group := range weightCues {
		for _, cue := range group.cues {
			if strings.Contains(text, cue) {
				return group.weight
			}
		}
	}

	return 0
}
