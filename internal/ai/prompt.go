package ai

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/and161185/comfy/internal/model"
)

const systemInstruction = `You are the stress awareness engine of "Comfy", a non-clinical, privacy-first web app.
You must NOT diagnose medical or psychological conditions.
You generate adaptive stress assessment questions, analyze answers and give practical, personal guidance.

RULES:
- No medical diagnosis or treatment advice
- Neutral, ethical, supportive tone
- General well-being guidance only
- Output MUST be valid JSON only: no markdown fences, no prose, no code blocks
- Every response must be specific to this user, never generic`

const seedAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// sessionSeed returns a short random token that keeps the model from repeating itself.
func sessionSeed() string {
	var b strings.Builder
	for i := 0; i < 8; i++ {
		b.WriteByte(seedAlphabet[rand.IntN(len(seedAlphabet))])
	}
	return b.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func language(p model.Profile) string { return orDefault(p.Language, model.LanguageEnglish) }

func writeProfile(b *strings.Builder, p model.Profile) {
	fmt.Fprintf(b, "User profile:\n")
	fmt.Fprintf(b, "- Age: %s\n", orDefault(p.Age, "Not specified"))
	fmt.Fprintf(b, "- Gender: %s\n", orDefault(p.Gender, "Not specified"))
	fmt.Fprintf(b, "- Occupation: %s\n", orDefault(p.Occupation, "Not specified"))
	fmt.Fprintf(b, "- Current mood / context: %s\n", orDefault(p.Mood, "Not specified"))
	fmt.Fprintf(b, "- Language: %s\n", language(p))
}

// QuestionsPrompt renders the question generation prompt.
func QuestionsPrompt(p model.Profile, seed string, now time.Time) string {
	lang := language(p)
	occ := orDefault(p.Occupation, "their work")
	mood := orDefault(p.Mood, "current state")

	var b strings.Builder
	b.WriteString(systemInstruction)
	fmt.Fprintf(&b, "\n\nSESSION: %s | TIME: %s\n(Make this response different from any earlier session.)\n\n", seed, now.UTC().Format(time.RFC3339))
	writeProfile(&b, p)
	fmt.Fprintf(&b, `
TASK:
Write 7 stress assessment questions tailored to this user.

REQUIREMENTS:
1. Write the questions in %[1]s.
2. Refer directly to the occupation ("%[2]s") and mood ("%[3]s"); focus on what stresses that specific role.
3. Use exactly these cluster names, in English: "%[4]s", "%[5]s", "%[6]s", "%[7]s". Only "text", "minLabel" and "maxLabel" are translated.
4. Answers use a 1-5 scale (1 = Never, 5 = Very Often).
5. Be conversational and empathetic, not clinical. Mix direct, scenario-based and reflective questions.
6. Avoid generic questions such as "How stressed do you feel?".

OUTPUT (strict JSON, nothing else):
{
  "questions": [
    {"id": "q1", "cluster": "<cluster name in English>", "text": "<question in %[1]s>", "minLabel": "<'Never' in %[1]s>", "maxLabel": "<'Very Often' in %[1]s>"}
  ]
}
`, lang, occ, mood, model.TagWork, model.TagEmotional, model.TagPhysical, model.TagSocial)
	return b.String()
}

// Intensity labels a raw 1..5 answer.
func Intensity(answer int) string {
	switch {
	case answer >= 4:
		return "high"
	case answer >= 3:
		return "moderate"
	default:
		return "low"
	}
}

// AnalysisPrompt renders the stress analysis prompt.
func AnalysisPrompt(p model.Profile, answered []model.AnsweredQuestion, score int, seed string, now time.Time) string {
	lang := language(p)
	occ := orDefault(p.Occupation, "person")

	var b strings.Builder
	b.WriteString(systemInstruction)
	fmt.Fprintf(&b, "\n\nSESSION: %s | TIME: %s\n\n", seed, now.UTC().Format(time.RFC3339))
	writeProfile(&b, p)
	b.WriteString("\nAnswers:\n")
	for _, q := range answered {
		fmt.Fprintf(&b, "- %q (%s) -> %d/5 [%s stress signal]\n", q.Text, q.Cluster, q.Answer, Intensity(q.Answer))
	}
	fmt.Fprintf(&b, "\nCalculated stress score: %d/100\n", score)
	fmt.Fprintf(&b, `
TASK:
Write a personal stress analysis for this %[2]s.

REQUIREMENTS:
1. Every text field is written in %[1]s.
2. Interpret the %[3]d/100 score for their role, point out the clusters with answers of 4 or more and name 2-4 concrete stressors.
3. Give exactly 5 actionable tips specific to "%[4]s", one of them about the mood "%[5]s". Each tip has concrete steps.
4. Add a short, friendly disclaimer.

OUTPUT (strict JSON, nothing else):
{
  "score": %[3]d,
  "level": "<Low, Moderate or High in %[1]s>",
  "analysis": {
    "summary": "<2-3 sentences>",
    "keyStressors": ["<stressor>", "<stressor>"],
    "stressLevelExplanation": "<explanation>"
  },
  "personalizedTips": [{"title": "<short title>", "description": "<actionable tip>"}],
  "disclaimer": "<disclaimer>"
}
`, lang, occ, score, orDefault(p.Occupation, "their work"), orDefault(p.Mood, "general well-being"))
	return b.String()
}
