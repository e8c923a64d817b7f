package qotd

import (
	_ "embed"
	"errors"
	"strings"
)

//go:embed questions.txt
var embeddedQuestions string

// Pool is the fixed, ordered set of deliverable question texts.
// It is immutable after construction.
type Pool struct {
	questions []string
}

// NewPool builds a pool from the given texts. Blank lines are skipped.
// An empty pool is a degenerate configuration and is rejected outright.
func NewPool(questions []string) (*Pool, error) {
	qs := make([]string, 0, len(questions))
	for _, q := range questions {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		qs = append(qs, q)
	}
	if len(qs) == 0 {
		return nil, errors.New("qotd: question pool is empty")
	}
	return &Pool{questions: qs}, nil
}

// DefaultPool returns the embedded question bank (one question per line).
func DefaultPool() (*Pool, error) {
	return NewPool(strings.Split(embeddedQuestions, "\n"))
}

func (p *Pool) Size() int { return len(p.questions) }

// Get returns the question at index i, modulo pool size.
func (p *Pool) Get(i int) string {
	n := len(p.questions)
	i %= n
	if i < 0 {
		i += n
	}
	return p.questions[i]
}
