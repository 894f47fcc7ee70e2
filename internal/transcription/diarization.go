package transcription

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/codebuildervaibhav/conversation-insights/internal/types"
)

// SpeakerSplitter assigns speaker turns to a transcript
type SpeakerSplitter interface {
	Split(ctx context.Context, text string) types.SpeakerData
}

// HeuristicSplitter splits transcripts with text rules only. It stands in
// for real diarization: no audio features are used.
type HeuristicSplitter struct {
	MaxSpeakers int
}

// Split implements SpeakerSplitter
func (h HeuristicSplitter) Split(_ context.Context, text string) types.SpeakerData {
	return SplitSpeakers(text, h.MaxSpeakers)
}

// unlabeledSpeaker owns text that precedes the first inline label
const unlabeledSpeaker = "Unlabeled"

// maxSpeakerLabels is the number of single-letter labels, Speaker A to Z
const maxSpeakerLabels = 26

// inlineLabel finds "Safety Manager: ..." at the start or right after a
// sentence end, speakerTag finds "Speaker B: ..." after any whitespace and
// honorificTail matches a "Dr. " directly before a label.
var (
	inlineLabel   = regexp.MustCompile(`(?:^|[.!?]["']?\s+)([A-Z][A-Za-z']*(?:\s[A-Z][A-Za-z']*){0,2}):\s+`)
	speakerTag    = regexp.MustCompile(`(?:^|\s)(Speaker [A-Z0-9]{1,2}):\s+`)
	honorificTail = regexp.MustCompile(`(?:^|\s)((?:Dr|Mr|Mrs|Ms|Prof)\.)\s+$`)
	sentenceEnd   = regexp.MustCompile(`[.!?]["']?\s+$`)
	sentenceRe    = regexp.MustCompile(`[^.!?]+(?:[.!?]+["']?|$)`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// Prefixes that look like labels but do not name a speaker
var nonSpeakerLabels = map[string]bool{
	"note": true, "notes": true, "reminder": true, "important": true, "warning": true,
	"caution": true, "update": true, "agenda": true, "summary": true, "action items": true,
	"next steps": true, "fyi": true, "ps": true, "re": true, "subject": true, "topic": true,
	"example": true, "tip": true,
}

// labelSpan locates one inline label: text[start:end] is the label and the
// turn body begins at body
type labelSpan struct {
	start, end, body int
}

// Openers that usually answer the previous speaker
var replyCues = []string{
	"yes", "yeah", "yep", "no", "nope", "agreed", "i agree", "thanks", "thank you",
	"okay", "ok", "sure", "exactly", "absolutely", "understood", "correct",
	"good", "great", "well", "that's", "that is", "i think", "i've", "i'll",
}

// SplitSpeakers divides a transcript into speaker turns. The result depends
// only on text and maxSpeakers.
func SplitSpeakers(text string, maxSpeakers int) types.SpeakerData {
	if maxSpeakers < 1 {
		maxSpeakers = 1
	}
	if maxSpeakers > maxSpeakerLabels {
		maxSpeakers = maxSpeakerLabels
	}

	text = strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
	if text == "" {
		return newSpeakerData(nil, types.SpeakerMethodHeuristic)
	}

	if turns := splitOnLabels(text); len(turns) > 0 {
		return newSpeakerData(turns, types.SpeakerMethodLabels)
	}

	return newSpeakerData(splitOnCues(text, maxSpeakers), types.SpeakerMethodHeuristic)
}

// splitOnLabels uses inline "Name:" labels. It needs at least two of them;
// a single colon is too weak a signal.
func splitOnLabels(text string) []types.Turn {
	spans := findLabels(text)
	if len(spans) < 2 {
		return nil
	}

	var turns []types.Turn
	if pre := strings.TrimSpace(text[:spans[0].start]); pre != "" {
		turns = append(turns, types.Turn{Speaker: unlabeledSpeaker, Text: pre})
	}

	for i, sp := range spans {
		end := len(text)
		if i+1 < len(spans) {
			end = spans[i+1].start
		}
		body := strings.TrimSpace(text[sp.body:end])
		if body == "" {
			continue
		}
		turns = append(turns, types.Turn{Speaker: text[sp.start:sp.end], Text: body})
	}
	return mergeAdjacent(turns)
}

// findLabels returns the inline labels in text order. An honorific is kept
// as part of the label ("Dr. Smith") and prefixes like "Note:" are skipped.
func findLabels(text string) []labelSpan {
	var spans []labelSpan
	for _, m := range inlineLabel.FindAllStringSubmatchIndex(text, -1) {
		start := m[2]
		if h := honorificTail.FindStringSubmatchIndex(text[:start]); h != nil {
			start = h[2]
			if start > 0 && !sentenceEnd.MatchString(text[:start]) {
				continue
			}
		}
		if nonSpeakerLabels[strings.ToLower(text[start:m[3]])] {
			continue
		}
		spans = append(spans, labelSpan{start: start, end: m[3], body: m[1]})
	}
	for _, m := range speakerTag.FindAllStringSubmatchIndex(text, -1) {
		spans = append(spans, labelSpan{start: m[2], end: m[3], body: m[1]})
	}

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	out := spans[:0]
	for _, sp := range spans {
		// both patterns can find the same label
		if n := len(out); n > 0 && sp.start < out[n-1].body {
			continue
		}
		out = append(out, sp)
	}
	return out
}

// splitOnCues starts a new turn after a question or at a reply cue and
// rotates through Speaker A, B, ... up to maxSpeakers.
func splitOnCues(text string, maxSpeakers int) []types.Turn {
	sentences := splitSentences(text)

	var (
		turns   []types.Turn
		current int
	)
	for i, s := range sentences {
		if i > 0 && (strings.HasSuffix(strings.TrimRight(sentences[i-1], `"'`), "?") || startsWithCue(s)) {
			current = (current + 1) % maxSpeakers
		}
		turns = append(turns, types.Turn{Speaker: speakerLabel(current), Text: s})
	}
	return mergeAdjacent(turns)
}

func splitSentences(text string) []string {
	var out []string
	for _, s := range sentenceRe.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func startsWithCue(sentence string) bool {
	lower := strings.ToLower(strings.TrimLeftFunc(sentence, func(r rune) bool {
		return !unicode.IsLetter(r)
	}))
	for _, cue := range replyCues {
		if !strings.HasPrefix(lower, cue) {
			continue
		}
		rest := lower[len(cue):]
		if rest == "" {
			return true
		}
		r := rune(rest[0])
		if !unicode.IsLetter(r) && r != '\'' {
			return true
		}
	}
	return false
}

func speakerLabel(i int) string {
	return "Speaker " + string(rune('A'+i))
}

func mergeAdjacent(turns []types.Turn) []types.Turn {
	var out []types.Turn
	for _, t := range turns {
		if n := len(out); n > 0 && out[n-1].Speaker == t.Speaker {
			out[n-1].Text += " " + t.Text
			continue
		}
		out = append(out, t)
	}
	return out
}

// ParseLabeledConversation reads "Label: text" lines. Lines without a colon
// are appended to the previous turn.
func ParseLabeledConversation(formatted string, method string) types.SpeakerData {
	var turns []types.Turn
	for _, line := range strings.Split(formatted, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		speaker, body, ok := strings.Cut(line, ":")
		speaker = strings.Trim(strings.TrimSpace(speaker), "*")
		body = strings.TrimSpace(strings.TrimLeft(body, "*"))
		if !ok || speaker == "" {
			if n := len(turns); n > 0 {
				turns[n-1].Text += " " + line
			}
			continue
		}
		if body == "" {
			continue
		}
		turns = append(turns, types.Turn{Speaker: speaker, Text: body})
	}
	return newSpeakerData(mergeAdjacent(turns), method)
}

func newSpeakerData(turns []types.Turn, method string) types.SpeakerData {
	data := types.SpeakerData{
		Turns:    turns,
		Speakers: make(map[string][]string),
		Method:   method,
	}
	if data.Turns == nil {
		data.Turns = []types.Turn{}
	}

	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		if _, seen := data.Speakers[t.Speaker]; !seen {
			data.SpeakerOrder = append(data.SpeakerOrder, t.Speaker)
		}
		data.Speakers[t.Speaker] = append(data.Speakers[t.Speaker], t.Text)
		lines = append(lines, t.Speaker+": "+t.Text)
	}
	if data.SpeakerOrder == nil {
		data.SpeakerOrder = []string{}
	}

	data.FormattedConversation = strings.Join(lines, "\n")
	data.SpeakerCount = len(data.SpeakerOrder)
	return data
}
