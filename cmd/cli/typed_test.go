package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/and161185/comfy/internal/model"
)

func Test_parseAnswers(t *testing.T) {
	t.Parallel()

	got, err := parseAnswers([]string{"seed_q1=4", " seed_q2 = 1"})
	if err != nil {
		t.Fatalf("parseAnswers: %v", err)
	}
	if got["seed_q1"] != 4 || got["seed_q2"] != 1 || len(got) != 2 {
		t.Fatalf("unexpected answers: %v", got)
	}

	for _, bad := range []string{"seed_q1", "=3", "seed_q1=0", "seed_q1=6", "seed_q1=x"} {
		if _, err := parseAnswers([]string{bad}); err == nil {
			t.Fatalf("want error for %q", bad)
		}
	}
}

func Test_askMissing(t *testing.T) {
	t.Parallel()

	qs := []model.Question{
		{ID: "q1", Text: "Work stress?", Cluster: model.TagWork},
		{ID: "q2", Text: "Sleep?", Cluster: model.TagPhysical, MinLabel: "Rarely", MaxLabel: "Constantly"},
		{ID: "q3", Text: "Friends?", Cluster: model.TagSocial},
	}
	answers := map[string]int{"q1": 5}
	var out bytes.Buffer

	// invalid input is asked again
	err := askMissing(strings.NewReader("9\n2\n3"), &out, qs, answers)
	if err != nil {
		t.Fatalf("askMissing: %v", err)
	}
	if answers["q1"] != 5 || answers["q2"] != 2 || answers["q3"] != 3 {
		t.Fatalf("unexpected answers: %v", answers)
	}
	if strings.Contains(out.String(), "Work stress?") {
		t.Fatalf("answered question must not be asked")
	}
	if !strings.Contains(out.String(), "1 = Rarely ... 5 = Constantly") {
		t.Fatalf("scale labels missing: %q", out.String())
	}

	if err := askMissing(strings.NewReader(""), &out, qs, map[string]int{}); err == nil {
		t.Fatalf("want error on EOF")
	}
}

func Test_draft_WriteRead(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "q.json")
	d := draft{
		UserInfo:  model.Profile{Occupation: "Student", Language: model.LanguageEnglish},
		Questions: []model.Question{{ID: "seed_q1", Text: "Deadlines?", Cluster: model.TagWork, Type: model.ScaleLikert}},
	}
	if err := writeDraft(path, nil, d); err != nil {
		t.Fatalf("writeDraft: %v", err)
	}
	got, err := readDraft(path, nil)
	if err != nil {
		t.Fatalf("readDraft: %v", err)
	}
	if got.UserInfo.Occupation != "Student" || len(got.Questions) != 1 || got.Questions[0].ID != "seed_q1" {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}

	if _, err := readDraft("-", strings.NewReader(`{"questions":[]}`)); err == nil {
		t.Fatalf("want error for empty questionnaire")
	}
}

func Test_printReport(t *testing.T) {
	t.Parallel()

	cs := model.ClusterScores{Work: 90, Physical: 40}
	var out bytes.Buffer
	printReport(&out, model.Report{
		Score:            73,
		Level:            "High",
		Analysis:         model.Analysis{Summary: "Busy month.", KeyStressors: []string{"deadlines"}},
		PersonalizedTips: []model.Tip{{Title: "Breaks", Description: "Take short breaks."}},
		Disclaimer:       "Not a diagnosis.",
		ClusterScores:    &cs,
	})
	s := out.String()
	for _, want := range []string{"73/100 (High)", "Work        90", "- deadlines", "* Breaks: Take short breaks.", "Not a diagnosis."} {
		if !strings.Contains(s, want) {
			t.Fatalf("report missing %q:\n%s", want, s)
		}
	}
}
