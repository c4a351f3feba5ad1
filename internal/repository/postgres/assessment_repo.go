package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/comfy/internal/model"
)

// AssessmentRepo implements AssessmentRepository using PostgreSQL.
// Nested documents (profile, questions, clusters, analysis, tips) live in jsonb columns.
type AssessmentRepo struct{ db *DB }

// NewAssessmentRepo constructs an assessment repository.
func NewAssessmentRepo(db *DB) *AssessmentRepo { return &AssessmentRepo{db: db} }

const assessmentColumns = `id, user_id, profile, questions, score, cluster_scores, level, analysis, tips, created_at`

// Create inserts an assessment. A zero ID or timestamp is filled in.
func (r *AssessmentRepo) Create(ctx context.Context, a *model.Assessment) (uuid.UUID, error) {
	if a.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return uuid.Nil, err
		}
		a.ID = id
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	doc, err := encodeAssessment(a)
	if err != nil {
		return uuid.Nil, err
	}

	const q = `
INSERT INTO assessments (` + assessmentColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = r.db.Pool.Exec(ctx, q,
		a.ID, a.UserID, doc.profile, doc.questions, a.Score, doc.clusters, string(a.Level), doc.analysis, doc.tips, a.CreatedAt)
	if err != nil {
		return uuid.Nil, err
	}
	return a.ID, nil
}

// ListForUser returns up to limit assessments, newest first.
func (r *AssessmentRepo) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Assessment, error) {
	const q = `
SELECT ` + assessmentColumns + `
FROM assessments WHERE user_id=$1
ORDER BY created_at DESC
LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	return collectAssessments(rows)
}

// ListSince returns assessments created at or after since, oldest first.
func (r *AssessmentRepo) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.Assessment, error) {
	const q = `
SELECT ` + assessmentColumns + `
FROM assessments WHERE user_id=$1 AND created_at >= $2
ORDER BY created_at ASC`
	rows, err := r.db.Pool.Query(ctx, q, userID, since)
	if err != nil {
		return nil, err
	}
	return collectAssessments(rows)
}

// DeleteAllForUser removes every assessment of the user.
func (r *AssessmentRepo) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM assessments WHERE user_id=$1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Stats returns the total count and the rounded platform average score.
func (r *AssessmentRepo) Stats(ctx context.Context) (int, int, error) {
	const q = `SELECT count(*), COALESCE(round(avg(score)), 0)::int FROM assessments`
	var count, avg int
	if err := r.db.Pool.QueryRow(ctx, q).Scan(&count, &avg); err != nil {
		return 0, 0, err
	}
	return count, avg, nil
}

type assessmentDoc struct {
	profile   []byte
	questions []byte
	clusters  []byte
	analysis  []byte
	tips      []byte
}

func encodeAssessment(a *model.Assessment) (assessmentDoc, error) {
	questions := a.Questions
	if questions == nil {
		questions = []model.AnsweredQuestion{}
	}
	tips := a.Tips
	if tips == nil {
		tips = []model.Tip{}
	}
	analysis := a.Analysis
	if analysis.KeyStressors == nil {
		analysis.KeyStressors = []string{}
	}

	var (
		d   assessmentDoc
		err error
	)
	if d.profile, err = json.Marshal(a.Profile); err != nil {
		return d, fmt.Errorf("encode profile: %w", err)
	}
	if d.questions, err = json.Marshal(questions); err != nil {
		return d, fmt.Errorf("encode questions: %w", err)
	}
	if d.clusters, err = json.Marshal(a.ClusterScores); err != nil {
		return d, fmt.Errorf("encode cluster scores: %w", err)
	}
	if d.analysis, err = json.Marshal(analysis); err != nil {
		return d, fmt.Errorf("encode analysis: %w", err)
	}
	if d.tips, err = json.Marshal(tips); err != nil {
		return d, fmt.Errorf("encode tips: %w", err)
	}
	return d, nil
}

func collectAssessments(rows pgx.Rows) ([]model.Assessment, error) {
	defer rows.Close()

	out := make([]model.Assessment, 0)
	for rows.Next() {
		var (
			a     model.Assessment
			d     assessmentDoc
			level string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &d.profile, &d.questions, &a.Score, &d.clusters, &level, &d.analysis, &d.tips, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Level = model.Level(level)
		if err := decodeAssessment(&a, d); err != nil {
			return nil, fmt.Errorf("assessment %s: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func decodeAssessment(a *model.Assessment, d assessmentDoc) error {
	parts := []struct {
		raw []byte
		dst any
	}{
		{d.profile, &a.Profile},
		{d.questions, &a.Questions},
		{d.clusters, &a.ClusterScores},
		{d.analysis, &a.Analysis},
		{d.tips, &a.Tips},
	}
	for _, p := range parts {
		if len(p.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(p.raw, p.dst); err != nil {
			return err
		}
	}
	return nil
}
