// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Role is an authorization role attached to a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Tokens collects an issued access/refresh token pair.
type Tokens struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AIUsage is the per-user daily AI request counter as stored on the user record.
type AIUsage struct {
	Date  string // YYYY-MM-DD (UTC); empty when never used
	Count int
}

// User represents an account stored on the server. Passwords are never stored in plaintext.
type User struct {
	ID        uuid.UUID
	Name      string
	Email     string // unique
	PwdHash   []byte // Argon2id(password, Salt)
	Salt      []byte
	Role      Role
	AIUsage   AIUsage
	CreatedAt time.Time
}

// PublicUser is the user representation exposed over the API.
type PublicUser struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  Role      `json:"role"`
}

// Public strips credentials and counters from the user.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Profile is the demographic snapshot submitted with an assessment.
type Profile struct {
	Age        string `json:"age,omitempty" validate:"max=32"`
	Gender     string `json:"gender,omitempty" validate:"max=64"`
	Occupation string `json:"occupation,omitempty" validate:"max=128"`
	Mood       string `json:"mood,omitempty" validate:"max=256"`
	Language   string `json:"language,omitempty" validate:"max=32"`
}

// Hindi reports whether the profile asks for Hindi output.
func (p Profile) Hindi() bool { return p.Language == LanguageHindi }

// LanguageEnglish and LanguageHindi are the supported profile languages.
const (
	LanguageEnglish = "English"
	LanguageHindi   = "Hindi"
)

// Cluster is one of the four stress categories, identified by its short id.
type Cluster string

const (
	ClusterWork      Cluster = "Work"
	ClusterEmotional Cluster = "Emotional"
	ClusterPhysical  Cluster = "Physical"
	ClusterSocial    Cluster = "Social"
)

// Clusters lists every cluster in its canonical order.
var Clusters = []Cluster{ClusterWork, ClusterEmotional, ClusterPhysical, ClusterSocial}

// Cluster tags as they appear on questions.
const (
	TagWork      = "Work/Academic Pressure"
	TagEmotional = "Emotional Well-being"
	TagPhysical  = "Physical & Sleep Health"
	TagSocial    = "Social & Lifestyle Balance"
)

// ClusterFromTag resolves a question cluster tag (long form or short id).
func ClusterFromTag(tag string) (Cluster, bool) {
	switch tag {
	case TagWork, string(ClusterWork):
		return ClusterWork, true
	case TagEmotional, string(ClusterEmotional):
		return ClusterEmotional, true
	case TagPhysical, string(ClusterPhysical):
		return ClusterPhysical, true
	case TagSocial, string(ClusterSocial):
		return ClusterSocial, true
	}
	return "", false
}

// ScaleType is the answer scale of a question.
type ScaleType string

const (
	ScaleLikert ScaleType = "scale"
	ScaleChoice ScaleType = "choice"
	ScaleYesNo  ScaleType = "yesno"
)

// Option is a scored answer of a multiple-choice question.
type Option struct {
	Text  string `json:"text"`
	Score int    `json:"score"`
}

// Question is a single generated or fallback question. It is never persisted on its own.
type Question struct {
	ID       string    `json:"id" validate:"required,max=64"`
	Text     string    `json:"text" validate:"required,max=1024"`
	Cluster  string    `json:"cluster" validate:"required,max=64"`
	Type     ScaleType `json:"type,omitempty"`
	MinLabel string    `json:"minLabel,omitempty"`
	MaxLabel string    `json:"maxLabel,omitempty"`
	Options  []Option  `json:"options,omitempty"`
	YesScore *int      `json:"yesScore,omitempty"`
	NoScore  *int      `json:"noScore,omitempty"`
}

// QuestionSet is the result of question generation.
type QuestionSet struct {
	Questions []Question `json:"questions"`
}

// AnsweredQuestion is a question embedded into a stored assessment.
type AnsweredQuestion struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Cluster string `json:"cluster"`
	Answer  int    `json:"answer"`
}

// ClusterScores are the per-cluster sub-scores (0..100 each).
type ClusterScores struct {
	Work      int `json:"Work"`
	Emotional int `json:"Emotional"`
	Physical  int `json:"Physical"`
	Social    int `json:"Social"`
}

// Get returns the score of cluster c.
func (s ClusterScores) Get(c Cluster) int {
	switch c {
	case ClusterWork:
		return s.Work
	case ClusterEmotional:
		return s.Emotional
	case ClusterPhysical:
		return s.Physical
	case ClusterSocial:
		return s.Social
	}
	return 0
}

// Set assigns v to cluster c.
func (s *ClusterScores) Set(c Cluster, v int) {
	switch c {
	case ClusterWork:
		s.Work = v
	case ClusterEmotional:
		s.Emotional = v
	case ClusterPhysical:
		s.Physical = v
	case ClusterSocial:
		s.Social = v
	}
}

// Level is the qualitative stress band.
type Level string

const (
	LevelLow      Level = "Low"
	LevelModerate Level = "Moderate"
	LevelHigh     Level = "High"
)

// Analysis is the narrative part of a stress report.
type Analysis struct {
	Summary                string   `json:"summary"`
	KeyStressors           []string `json:"keyStressors"`
	StressLevelExplanation string   `json:"stressLevelExplanation"`
}

// Tip is a personalized suggestion.
type Tip struct {
	Title       string `json:"title" validate:"required,max=256"`
	Description string `json:"description" validate:"required"`
}

// Report is the analysis returned to the client for a submitted questionnaire.
// Level may be localized; the stored assessment always keeps the English band.
type Report struct {
	Score            int            `json:"score"`
	Level            string         `json:"level"`
	Analysis         Analysis       `json:"analysis"`
	PersonalizedTips []Tip          `json:"personalizedTips"`
	Disclaimer       string         `json:"disclaimer"`
	ClusterScores    *ClusterScores `json:"clusterScores,omitempty"`
}

// Assessment is one completed questionnaire submission. Immutable once created.
type Assessment struct {
	ID            uuid.UUID          `json:"_id"`
	UserID        uuid.UUID          `json:"userId"`
	Profile       Profile            `json:"userInfo"`
	Questions     []AnsweredQuestion `json:"questions"`
	Score         int                `json:"score"`
	ClusterScores ClusterScores      `json:"clusterScores"`
	Level         Level              `json:"level"`
	Analysis      Analysis           `json:"analysis"`
	Tips          []Tip              `json:"personalizedTips"`
	CreatedAt     time.Time          `json:"createdAt"`
}

// TrendPoint is a history entry of the trends payload.
type TrendPoint struct {
	ID               uuid.UUID     `json:"_id"`
	Date             time.Time     `json:"date"`
	Score            int           `json:"score"`
	Level            Level         `json:"level"`
	Analysis         Analysis      `json:"analysis"`
	PersonalizedTips []Tip         `json:"personalizedTips"`
	ClusterScores    ClusterScores `json:"clusterScores"`
	Disclaimer       string        `json:"disclaimer"`
}

// Trends aggregates a user's recent assessments.
type Trends struct {
	Last7DaysAvg     *int         `json:"last7DaysAvg"`
	Last30DaysAvg    *int         `json:"last30DaysAvg"`
	ChangePercentage *int         `json:"changePercentage"`
	DominantCluster  *Cluster     `json:"dominantCluster"`
	TotalAssessments int          `json:"totalAssessments"`
	History          []TrendPoint `json:"history"`
}

// PlatformStats is the anonymized admin view.
type PlatformStats struct {
	TotalAssessments int `json:"totalAssessments"`
	TotalUsers       int `json:"totalUsers"`
	PlatformAvgScore int `json:"platformAvgScore"`
}
