package review

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Verdict is the score and critique extracted from a reviewer reply.
type Verdict struct {
	Score       int
	Critique    string
	ParseFailed bool
}

var (
	intToken     = regexp.MustCompile(`[-+]?\d+`)
	scoreLine    = regexp.MustCompile(`^(?i:score|rating|分數|分数|評分|评分)\s*[:：]\s*(.*)$`)
	critiqueLine = regexp.MustCompile(`^(?i:critique|comment|comments|reasoning|評語|评语)\s*[:：]\s*(.*)$`)

	// Unanchored forms for replies such as {score: 12, critique: "x"} or
	// "Score: 7, Critique: fine" where labels share a line.
	scoreAny    = regexp.MustCompile(`(?i)["']?(?:score|rating|分數|分数|評分|评分)["']?\s*[:：]\s*["']?([-+]?\d+)`)
	critiqueAny = regexp.MustCompile(`(?i)["']?(?:critique|comments?|reasoning|評語|评语)["']?\s*[:：]\s*(.*)`)
)

var (
	jsonScoreKeys    = []string{"score", "rating", "分數", "分数"}
	jsonCritiqueKeys = []string{"critique", "comment", "reasoning", "評語", "评语"}
)

// ParseScore extracts a score and critique from a reviewer reply. A JSON
// object is tried first, then labeled lines, then a score label anywhere in
// the reply. A reply with no recognizable
// score gets the minimum score 1, the raw reply as critique and ParseFailed.
// Parsed scores are clamped to [1,10].
func ParseScore(raw string) Verdict {
	if v, ok := parseJSON(raw); ok {
		return v
	}
	if v, ok := parseLines(raw); ok {
		return v
	}
	if v, ok := parseRelaxed(raw); ok {
		return v
	}
	return Verdict{Score: 1, Critique: raw, ParseFailed: true}
}

func parseJSON(raw string) (Verdict, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Verdict{}, false
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &decoded); err != nil {
		return Verdict{}, false
	}
	obj := make(map[string]any, len(decoded))
	for k, val := range decoded {
		obj[strings.ToLower(strings.TrimSpace(k))] = val
	}

	for _, k := range jsonScoreKeys {
		val, ok := obj[k]
		if !ok {
			continue
		}
		n, ok := jsonInt(val)
		if !ok {
			return Verdict{}, false
		}
		v := Verdict{Score: clamp(n)}
		for _, ck := range jsonCritiqueKeys {
			if s, ok := obj[ck].(string); ok {
				v.Critique = strings.TrimSpace(s)
				break
			}
		}
		return v, true
	}
	return Verdict{}, false
}

func jsonInt(val any) (int, bool) {
	switch x := val.(type) {
	case float64:
		if math.IsNaN(x) {
			return 0, false
		}
		if x > math.MaxInt32 {
			return math.MaxInt32, true
		}
		if x < math.MinInt32 {
			return math.MinInt32, true
		}
		return int(x), true
	case string:
		return firstInt(x)
	}
	return 0, false
}

func parseLines(raw string) (Verdict, bool) {
	var (
		v           Verdict
		found       bool
		inCritique  bool
		critiqueBuf []string
	)

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.Trim(strings.TrimSpace(line), "*#>- ")

		if m := scoreLine.FindStringSubmatch(trimmed); m != nil {
			inCritique = false
			if found {
				continue
			}
			if n, ok := firstInt(m[1]); ok {
				v.Score = clamp(n)
				found = true
			}
			if cm := critiqueAny.FindStringSubmatch(m[1]); cm != nil {
				inCritique = true
				critiqueBuf = critiqueBuf[:0]
				if s := trimCritique(cm[1]); s != "" {
					critiqueBuf = append(critiqueBuf, s)
				}
			}
			continue
		}
		if m := critiqueLine.FindStringSubmatch(trimmed); m != nil {
			inCritique = true
			critiqueBuf = critiqueBuf[:0]
			if s := strings.Trim(m[1], "* "); s != "" {
				critiqueBuf = append(critiqueBuf, s)
			}
			continue
		}
		if inCritique && strings.TrimSpace(line) != "" {
			critiqueBuf = append(critiqueBuf, strings.TrimSpace(line))
		}
	}

	if !found {
		return Verdict{}, false
	}
	v.Critique = strings.Join(critiqueBuf, "\n")
	return v, true
}

func parseRelaxed(raw string) (Verdict, bool) {
	m := scoreAny.FindStringSubmatch(raw)
	if m == nil {
		return Verdict{}, false
	}
	n, ok := firstInt(m[1])
	if !ok {
		return Verdict{}, false
	}
	v := Verdict{Score: clamp(n)}
	if cm := critiqueAny.FindStringSubmatch(raw); cm != nil {
		v.Critique = trimCritique(cm[1])
	}
	return v, true
}

func trimCritique(s string) string {
	return strings.Trim(strings.TrimSpace(s), "\"'{},* ")
}

func firstInt(s string) (int, bool) {
	tok := intToken.FindString(s)
	if tok == "" {
		return 0, false
	}
	n, err := strconv.Atoi(tok)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return n, true
}

func clamp(n int) int {
	return max(1, min(10, n))
}
