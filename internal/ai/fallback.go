package ai

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/and161185/comfy/internal/model"
)

// Fallback sizes.
const (
	FallbackQuestionCount = 7
	FallbackTipCount      = 4
)

// Disclaimers attached to reports.
const (
	DisclaimerEN = "This assessment is for awareness purposes only and is not a medical diagnosis."
	DisclaimerHI = "यह मूल्यांकन केवल जागरूकता के लिए है और चिकित्सा निदान नहीं है।"
)

type templated struct {
	cluster string
	text    string
}

func questionPool(p model.Profile) []templated {
	if p.Hindi() {
		occ := orDefault(p.Occupation, "आपकी दिनचर्या")
		mood := orDefault(p.Mood, "आपकी वर्तमान स्थिति")
		return []templated{
			{model.TagWork, fmt.Sprintf("एक %s के रूप में, क्या आप अक्सर भारी दबाव या डेडलाइन के कारण तनाव महसूस करते हैं?", occ)},
			{model.TagWork, fmt.Sprintf("क्या %s से जुड़ा तनाव आपको एक समय में एक चीज़ पर ध्यान केंद्रित करने से रोकता है?", occ)},
			{model.TagEmotional, fmt.Sprintf("यह देखते हुए कि आप \"%s\" महसूस कर रहे हैं, क्या आप अक्सर अपने खाली समय में भी नकारात्मक विचारों से घिरे रहते हैं?", mood)},
			{model.TagEmotional, "क्या आप दिन के अंत में खुद को भावनात्मक रूप से थका हुआ महसूस करते हैं?"},
			{model.TagPhysical, fmt.Sprintf("क्या आपकी वर्तमान स्थिति (%s) ने आपकी नींद या आराम करने की क्षमता को प्रभावित किया है?", mood)},
			{model.TagPhysical, fmt.Sprintf("क्या आप अक्सर %s के रूप में अपने जीवन से संबंधित सिरदर्द या थकान महसूस करते हैं?", occ)},
			{model.TagSocial, fmt.Sprintf("क्या आप अक्सर %s के दबाव के कारण सामाजिक योजनाओं या अपने शौक को छोड़ देते हैं?", occ)},
			{model.TagSocial, fmt.Sprintf("जब आप \"%s\" महसूस करते हैं, तो क्या आप अक्सर उन लोगों से दूर हो जाते हैं जो आमतौर पर आपका समर्थन करते हैं?", mood)},
		}
	}
	occ := orDefault(p.Occupation, "your daily routine")
	mood := orDefault(p.Mood, "your current state")
	return []templated{
		{model.TagWork, fmt.Sprintf("In your role as a %s, how often do deadlines or responsibilities pile up faster than you can handle them?", occ)},
		{model.TagWork, fmt.Sprintf("How often does %s-related pressure make it hard to focus on one thing at a time?", occ)},
		{model.TagEmotional, fmt.Sprintf("Given that you feel \"%s\", how often are you unable to shake off negative thoughts even in your free time?", mood)},
		{model.TagEmotional, "How often do you end the day emotionally drained, with nothing left for yourself?"},
		{model.TagPhysical, fmt.Sprintf("How often has your current mood (%s) affected your sleep or your ability to rest?", mood)},
		{model.TagPhysical, fmt.Sprintf("How often do you notice tension, headaches or fatigue tied to your life as a %s?", occ)},
		{model.TagSocial, fmt.Sprintf("How often do you skip social plans or hobbies because of demands from your role as a %s?", occ)},
		{model.TagSocial, fmt.Sprintf("When feeling \"%s\", how often do you withdraw from people who usually support you?", mood)},
	}
}

// scaleLabels returns the min/max labels for the profile language.
func scaleLabels(p model.Profile) (string, string) {
	if p.Hindi() {
		return "कभी नहीं", "अक्सर"
	}
	return "Never", "Very Often"
}

// FallbackQuestions samples templated questions for the profile. Ids are
// "<seed>_q<n>"; an empty seed is derived from the current time.
func FallbackQuestions(p model.Profile, seed string) model.QuestionSet {
	if seed == "" {
		seed = strconv.FormatInt(time.Now().UnixMilli(), 36)
	}
	pool := questionPool(p)
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	pool = pool[:FallbackQuestionCount]

	minLabel, maxLabel := scaleLabels(p)
	out := model.QuestionSet{Questions: make([]model.Question, 0, len(pool))}
	for i, q := range pool {
		out.Questions = append(out.Questions, model.Question{
			ID:       fmt.Sprintf("%s_q%d", seed, i+1),
			Text:     q.text,
			Cluster:  q.cluster,
			Type:     model.ScaleLikert,
			MinLabel: minLabel,
			MaxLabel: maxLabel,
		})
	}
	return out
}

func tipPool(p model.Profile) []model.Tip {
	if p.Hindi() {
		occ := orDefault(p.Occupation, "आपकी दिनचर्या")
		return []model.Tip{
			{Title: "5-4-3-2-1 तकनीक अपनाएं", Description: "जब तनाव महसूस हो, तो 5 चीजें पहचानें जो आप देख सकते हैं, 4 जिन्हें छू सकते हैं, 3 जिन्हें सुन सकते हैं, 2 जिन्हें सूंघ सकते हैं, और 1 जिसका स्वाद ले सकते हैं।"},
			{Title: "छोटे ब्रेक लें", Description: fmt.Sprintf("एक %s के रूप में, हर 90 मिनट में 5 मिनट का ब्रेक लें। अपनी जगह से उठें और स्क्रीन से दूर देखें।", occ)},
			{Title: "गहरी सांस लें", Description: "4 सेकंड के लिए सांस लें, 4 सेकंड रोकें, 4 सेकंड छोड़ें। इसे 4 बार दोहराएं।"},
			{Title: "सोने से पहले स्क्रीन बंद करें", Description: "सोने से 1 घंटे पहले स्क्रीन से दूर रहें। किताबें पढ़ें या हल्का स्ट्रेचिंग करें।"},
			{Title: "निर्णय लेने का तनाव कम करें", Description: fmt.Sprintf("एक %s के रूप में आप रोजाना कई निर्णय लेते हैं। छोटे विकल्पों को सरल बनाएं ताकि मानसिक ऊर्जा बच सके।", occ)},
		}
	}
	occ := orDefault(p.Occupation, "your daily routine")
	return []model.Tip{
		{Title: "Try the 5-4-3-2-1 Grounding Technique", Description: "When overwhelmed, name 5 things you see, 4 you can touch, 3 you hear, 2 you smell and 1 you taste."},
		{Title: "Schedule Micro-Breaks", Description: fmt.Sprintf("As a %s, take a 5-minute break every 90 minutes. Stand up, stretch and look away from screens.", occ)},
		{Title: "Practice Box Breathing", Description: "Inhale for 4 seconds, hold for 4, exhale for 4, hold for 4. Repeat 4 times."},
		{Title: "Set a Wind-Down Alarm", Description: "Set an alarm an hour before bed to step away from work and screens. Read or stretch instead."},
		{Title: "Limit Decision Fatigue", Description: fmt.Sprintf("As a %s you make many decisions a day. Simplify low-stakes choices such as meals and outfits.", occ)},
	}
}

// FallbackTips samples tips from the templated pool.
func FallbackTips(p model.Profile) []model.Tip {
	pool := tipPool(p)
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:FallbackTipCount]
}

// LocalizedLevel renders a level in the profile language.
func LocalizedLevel(l model.Level, p model.Profile) string {
	if !p.Hindi() {
		return string(l)
	}
	switch l {
	case model.LevelHigh:
		return "उच्च"
	case model.LevelModerate:
		return "मध्यम"
	default:
		return "निम्न"
	}
}

// Disclaimer returns the awareness disclaimer in the profile language.
func Disclaimer(p model.Profile) string {
	if p.Hindi() {
		return DisclaimerHI
	}
	return DisclaimerEN
}

// FallbackReport builds a templated report from the deterministic score and level.
func FallbackReport(p model.Profile, score int, level model.Level) model.Report {
	hi := p.Hindi()
	lvl := LocalizedLevel(level, p)

	var a model.Analysis
	if hi {
		occ := orDefault(p.Occupation, "आपकी दिनचर्या")
		a.Summary = fmt.Sprintf("आपकी प्रतिक्रियाओं के आधार पर, आपका तनाव स्तर %s है। एक %s के रूप में, आपकी दिनचर्या इसमें योगदान दे सकती है।", lvl, occ)
		a.StressLevelExplanation = fmt.Sprintf("आपका %d/100 का स्कोर %s तनाव दर्शाता है।", score, lvl)
		if score > 50 {
			a.KeyStressors = []string{"दबाव", "भावनात्मक थकान"}
		} else {
			a.KeyStressors = []string{"सामान्य तनाव"}
		}
	} else {
		occ := orDefault(p.Occupation, "your daily routine")
		low := strings.ToLower(lvl)
		a.Summary = fmt.Sprintf("Based on your responses, your stress level is %s. As a %s, your daily demands may be contributing to this.", low, occ)
		a.StressLevelExplanation = fmt.Sprintf("Your score of %d/100 indicates %s stress.", score, low)
		if score > 50 {
			a.KeyStressors = []string{model.TagWork, "Emotional Fatigue"}
		} else {
			a.KeyStressors = []string{"General Daily Stress"}
		}
	}

	return model.Report{
		Score:            score,
		Level:            lvl,
		Analysis:         a,
		PersonalizedTips: FallbackTips(p),
		Disclaimer:       Disclaimer(p),
	}
}
