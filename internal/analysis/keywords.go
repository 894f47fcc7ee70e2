package analysis

import (
	"fmt"
	"strings"

	"github.com/codebuildervaibhav/conversation-insights/internal/types"
)

// Topic labels
const (
	TopicSafety     = "Safety Discussion"
	TopicQuality    = "Quality Control"
	TopicProduction = "Production Planning"
	TopicGeneral    = "General Discussion"
)

const (
	wordsPerMinute = 150
	maxKeyPoints   = 5
	minKeyPointLen = 10
)

var (
	safetyKeywords     = []string{"safety", "hazard", "risk", "danger", "accident", "injury", "ppe", "protective", "lockout", "emergency"}
	qualityKeywords    = []string{"defect", "quality", "inspection", "tolerance", "reject", "standard", "compliance", "testing", "specification"}
	productionKeywords = []string{"production", "schedule", "deadline", "capacity", "manufacturing", "assembly", "efficiency", "downtime"}
)

// AnalyzeKeywords runs the local manufacturing-topic analysis over the
// transcript and the speaker turns.
func AnalyzeKeywords(text string, speakers types.SpeakerData) types.KeywordAnalysis {
	lower := strings.ToLower(text)
	safety := countKeywords(lower, safetyKeywords)
	quality := countKeywords(lower, qualityKeywords)
	production := countKeywords(lower, productionKeywords)

	words := len(strings.Fields(text))

	speakerAnalysis := make(map[string]types.SpeakerStats, len(speakers.Speakers))
	for speaker, utterances := range speakers.Speakers {
		speakerText := strings.ToLower(strings.Join(utterances, " "))
		speakerAnalysis[speaker] = types.SpeakerStats{
			Utterances:         len(utterances),
			Words:              len(strings.Fields(speakerText)),
			SafetyMentions:     countKeywords(speakerText, safetyKeywords),
			QualityMentions:    countKeywords(speakerText, qualityKeywords),
			ProductionMentions: countKeywords(speakerText, productionKeywords),
		}
	}

	return types.KeywordAnalysis{
		MainTopic:          mainTopic(safety, quality, production),
		SafetyMentions:     safety,
		QualityMentions:    quality,
		ProductionMentions: production,
		KeyPoints:          keyPoints(text),
		WordCount:          words,
		EstimatedDuration:  fmt.Sprintf("%.1f minutes", float64(words)/wordsPerMinute),
		SpeakerAnalysis:    speakerAnalysis,
		TotalSpeakers:      speakers.SpeakerCount,
	}
}

// countKeywords counts how many distinct keywords occur in lowered text
func countKeywords(lowered string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			n++
		}
	}
	return n
}

func mainTopic(safety, quality, production int) string {
	switch {
	case safety > quality && safety > production:
		return TopicSafety
	case quality > production:
		return TopicQuality
	case production > 0:
		return TopicProduction
	default:
		return TopicGeneral
	}
}

// keyPoints returns the first sentences long enough to carry content
func keyPoints(text string) []string {
	points := []string{}
	for _, s := range strings.Split(text, ".") {
		s = strings.TrimSpace(s)
		if len(s) <= minKeyPointLen {
			continue
		}
		points = append(points, s)
		if len(points) == maxKeyPoints {
			break
		}
	}
	return points
}
