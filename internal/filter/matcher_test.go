package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-jobwatch/internal/models"
)

func TestMatch(t *testing.T) {
	target := models.Target{
		IncludeKeywords: []string{"intern", "student", "graduate", "university", "entry level", "thực tập"},
		ExcludeKeywords: []string{"senior", "phd"},
	}
	m := New(target)

	tests := []struct {
		name     string
		item     string
		expected bool
	}{
		{"plain intern", "Software Engineering Intern", true},
		{"student", "Student Researcher, Compilers", true},
		{"hyphenated phrase", "Entry-Level Hardware Engineer", true},
		{"diacritics folded", "Thực Tập Sinh Golang", true},
		{"no keyword", "Principal Architect", false},
		{"excluded wins", "Senior Intern Program Manager", false},
		{"word boundary", "Internal Tools Engineer", false},
		{"case insensitive", "PHD INTERN", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, m.Match(tt.item))
		})
	}
}

func TestApplyWithoutKeywordsKeepsAll(t *testing.T) {
	items := []string{"A", "B"}
	assert.Equal(t, items, Items(models.Target{}, items))
}

func TestApplyKeepsOrder(t *testing.T) {
	target := models.Target{IncludeKeywords: []string{"intern"}}
	got := Items(target, []string{"Intern B", "Manager", "Intern A"})
	assert.Equal(t, []string{"Intern B", "Intern A"}, got)
}
