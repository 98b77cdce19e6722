package recordings

import (
	"encoding/json"
	"strings"
)

// summaryPrompt is the fixed instruction for the summarization step. The
// model is asked for strict JSON, but ParseAnalysis tolerates chatter
// around the object.
const summaryPrompt = `You are a sales call analyst. Analyze the following call transcript between a sales representative and a lead.

Respond with ONLY a JSON object in exactly this shape:
{
  "summary": "2-4 sentence summary of the call",
  "sentiment": "positive" | "neutral" | "negative",
  "sentiment_reasoning": "one sentence explaining the sentiment",
  "key_points": ["..."],
  "action_items": ["..."],
  "next_steps": ["..."],
  "quality_scores": {
    "engagement": 1-10,
    "communication": 1-10,
    "objection_handling": 1-10,
    "closing": 1-10,
    "overall": 1-10
  }
}

Transcript:
`

// BuildSummaryPrompt wraps a transcript in the analysis instruction.
func BuildSummaryPrompt(transcript string) string {
	return summaryPrompt + transcript
}

var validSentiments = map[string]bool{"positive": true, "neutral": true, "negative": true}

// ParseAnalysis extracts the first JSON object from raw model output and
// fills gaps with neutral defaults: models wrap JSON in prose or markdown
// fences often enough that strict parsing would fail good answers. Only a
// completely unusable response returns ok=false.
func ParseAnalysis(raw string) (Analysis, bool) {
	neutral := Analysis{
		Sentiment:     "neutral",
		KeyPoints:     []string{},
		ActionItems:   []string{},
		NextSteps:     []string{},
		QualityScores: Scores{Engagement: 5, Communication: 5, ObjectionsScore: 5, ClosingScore: 5, Overall: 5},
	}

	obj := firstJSONObject(raw)
	if obj == "" {
		return neutral, false
	}

	var parsed Analysis
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return neutral, false
	}

	if !validSentiments[strings.ToLower(parsed.Sentiment)] {
		parsed.Sentiment = "neutral"
		parsed.SentimentReasoning = ""
	} else {
		parsed.Sentiment = strings.ToLower(parsed.Sentiment)
	}
	if parsed.KeyPoints == nil {
		parsed.KeyPoints = []string{}
	}
	if parsed.ActionItems == nil {
		parsed.ActionItems = []string{}
	}
	if parsed.NextSteps == nil {
		parsed.NextSteps = []string{}
	}
	parsed.QualityScores = clampScores(parsed.QualityScores)

	return parsed, true
}

func clampScores(s Scores) Scores {
	return Scores{
		Engagement:      clampScore(s.Engagement),
		Communication:   clampScore(s.Communication),
		ObjectionsScore: clampScore(s.ObjectionsScore),
		ClosingScore:    clampScore(s.ClosingScore),
		Overall:         clampScore(s.Overall),
	}
}

// clampScore forces a score onto the 1-10 rubric, mapping a missing value
// to the midpoint.
func clampScore(v int) int {
	if v == 0 {
		return 5
	}
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

// firstJSONObject returns the first balanced {...} block in the text,
// respecting strings and escapes.
func firstJSONObject(raw string) string {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return raw[start : i+1]
				}
			}
		}
	}
	return ""
}
