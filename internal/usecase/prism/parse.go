package prism

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kailas-cloud/incidex/internal/domain"
	domprism "github.com/kailas-cloud/incidex/internal/domain/prism"
)

// reply is a parsed PRISM answer on the requested scale.
type reply struct {
	vector     domprism.Vector
	rationales map[domprism.Dimension]string
	// substituted lists dimensions that were missing or out of range and got the midpoint.
	substituted []domprism.Dimension
}

type rawScore struct {
	value     float64
	rationale string
}

// parsePrism reads a six-dimension reply. JSON is tried first, then "Dimension: n - text" lines.
// It fails only when no dimension at all can be recovered.
func parsePrism(text string, scale domprism.Scale) (reply, error) {
	found := parsePrismJSON(text)
	if len(found) == 0 {
		found = parsePrismLines(text)
	}
	if len(found) == 0 {
		return reply{}, fmt.Errorf("%w: no dimension scores found", domain.ErrMalformedReply)
	}

	r := reply{
		vector:     domprism.Vector{Scale: scale},
		rationales: make(map[domprism.Dimension]string, len(domprism.Dimensions)),
	}
	for _, d := range domprism.Dimensions {
		s, ok := found[d]
		if !ok || !scale.Contains(s.value) {
			r.vector.Set(d, scale.Neutral())
			r.substituted = append(r.substituted, d)
			continue
		}
		r.vector.Set(d, s.value)
		if s.rationale != "" {
			r.rationales[d] = s.rationale
		}
	}
	return r, nil
}

func parsePrismJSON(text string) map[domprism.Dimension]rawScore {
	obj, ok := extractObject(text)
	if !ok {
		return nil
	}
	// Some models nest the answer one level down, e.g. {"scores": {...}}.
	if len(obj) == 1 {
		for _, v := range obj {
			var inner map[string]json.RawMessage
			if json.Unmarshal(v, &inner) == nil && len(matchDimensions(inner)) > 0 {
				obj = inner
			}
		}
	}
	return matchDimensions(obj)
}

func matchDimensions(obj map[string]json.RawMessage) map[domprism.Dimension]rawScore {
	out := make(map[domprism.Dimension]rawScore)
	for k, v := range obj {
		d, ok := dimensionFor(k)
		if !ok {
			continue
		}
		if s, ok := decodeScore(v); ok {
			out[d] = s
		}
	}
	return out
}

// decodeScore accepts 4, "4", "4/5" and {"score": 4, "rationale": "..."}.
func decodeScore(raw json.RawMessage) (rawScore, bool) {
	var n float64
	if json.Unmarshal(raw, &n) == nil {
		return rawScore{value: n}, true
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if v, ok := leadingNumber(s); ok {
			return rawScore{value: v}, true
		}
		return rawScore{}, false
	}
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return rawScore{}, false
	}
	var out rawScore
	found := false
	for _, key := range []string{"score", "value", "rating"} {
		if v, ok := obj[key]; ok {
			if s, ok := decodeScore(v); ok {
				out.value, found = s.value, true
				break
			}
		}
	}
	if !found {
		return rawScore{}, false
	}
	for _, key := range []string{"rationale", "reasoning", "reason", "explanation"} {
		var text string
		if v, ok := obj[key]; ok && json.Unmarshal(v, &text) == nil {
			out.rationale = strings.TrimSpace(text)
			break
		}
	}
	return out, true
}

var (
	numberRe   = regexp.MustCompile(`^[-+]?\d+(?:\.\d+)?`)
	lineNumRe  = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)
	outOfRe    = regexp.MustCompile(`^\s*(?:/|out of)\s*\d+(?:\.\d+)?`)
	lineLeadRe = regexp.MustCompile(`^[\s*#>\-•\d.)]*`)
	// rangeRe matches a scale hint between the dimension and its value, e.g. "(1-5)" or "1 to 5:".
	rangeRe = regexp.MustCompile(`^\s*(?:\([^)]*\)|\[[^\]]*\]|\d+(?:\.\d+)?\s*(?:-|–|to)\s*\d+(?:\.\d+)?\s*:)`)
)

func leadingNumber(s string) (float64, bool) {
	m := numberRe.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	return v, err == nil
}

// parsePrismLines handles prose such as "**Logical Coherence**: 4/5 - the same model family".
func parsePrismLines(text string) map[domprism.Dimension]rawScore {
	out := make(map[domprism.Dimension]rawScore)
	for _, line := range strings.Split(text, "\n") {
		line = lineLeadRe.ReplaceAllString(line, "")
		line = strings.ReplaceAll(line, "**", "")
		d, rest, ok := cutDimension(line)
		if !ok {
			continue
		}
		if _, dup := out[d]; dup {
			continue
		}
		rest = rangeRe.ReplaceAllString(rest, "")
		loc := lineNumRe.FindStringIndex(rest)
		if loc == nil {
			continue
		}
		v, err := strconv.ParseFloat(rest[loc[0]:loc[1]], 64)
		if err != nil {
			continue
		}
		tail := rest[loc[1]:]
		if m := outOfRe.FindStringIndex(tail); m != nil {
			tail = tail[m[1]:]
		}
		out[d] = rawScore{value: v, rationale: strings.TrimSpace(strings.TrimLeft(tail, " )-:–—,.;"))}
	}
	return out
}

// cutDimension matches a line starting with a dimension title or key.
func cutDimension(line string) (domprism.Dimension, string, bool) {
	norm := strings.ToLower(line)
	for _, d := range domprism.Dimensions {
		for _, name := range []string{strings.ToLower(d.Title()), string(d)} {
			if strings.HasPrefix(norm, name) {
				return d, line[len(name):], true
			}
		}
	}
	return "", "", false
}

func dimensionFor(key string) (domprism.Dimension, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.NewReplacer(" ", "_", "-", "_").Replace(k)
	for _, d := range domprism.Dimensions {
		if k == string(d) {
			return d, true
		}
	}
	return "", false
}

// extractObject finds the outermost JSON object, tolerating code fences and surrounding prose.
func extractObject(text string) (map[string]json.RawMessage, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

var confidenceRe = regexp.MustCompile(`(?i)confidence(?:[ _]score)?["']?\s*[:=]?\s*([-+]?\d+(?:\.\d+)?)`)

// parseGeneric reads {"confidence_score": n, "reasoning": "..."} or a "confidence: n" line.
// inRange is false when the value lies outside the scale.
func parseGeneric(text string, scale domprism.Scale) (value float64, reasoning string, inRange bool, err error) {
	found := false
	if obj, ok := extractObject(text); ok {
		for _, key := range []string{"confidence_score", "confidence", "score"} {
			if raw, ok := obj[key]; ok {
				if s, ok := decodeScore(raw); ok {
					value, found = s.value, true
					break
				}
			}
		}
		for _, key := range []string{"reasoning", "rationale", "explanation"} {
			if raw, ok := obj[key]; ok && json.Unmarshal(raw, &reasoning) == nil {
				break
			}
		}
	}
	if !found {
		m := confidenceRe.FindStringSubmatch(text)
		if m == nil {
			return 0, "", false, fmt.Errorf("%w: no confidence score found", domain.ErrMalformedReply)
		}
		value, _ = strconv.ParseFloat(m[1], 64)
	}
	reasoning = strings.TrimSpace(reasoning)
	if !scale.Contains(value) {
		return scale.Neutral(), reasoning, false, nil
	}
	return value, reasoning, true, nil
}
