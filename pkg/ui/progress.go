package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

const barWidth = 36

// ProgressBar draws a single-line "label  [====----]  50%" bar
type ProgressBar struct {
	out      io.Writer
	mu       *sync.Mutex
	label    string
	total    int
	current  int
	fill     string
	finished bool
}

func newProgressBar(out io.Writer, mu *sync.Mutex, label string, total int, fill string) *ProgressBar {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	p := &ProgressBar{
		out:   out,
		mu:    mu,
		label: label,
		total: total,
		fill:  fill,
	}
	p.mu.Lock()
	p.render()
	p.mu.Unlock()
	return p
}

// NewProgressBar creates a bar writing to out with a plain "=" fill
func NewProgressBar(out io.Writer, label string, total int) *ProgressBar {
	return newProgressBar(out, nil, label, total, "=")
}

// Add advances the bar by n items
func (p *ProgressBar) Add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.current += n
	if p.current > p.total {
		p.current = p.total
	}
	p.render()
}

// Finish draws the final state and ends the line
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.finished = true
	p.render()
	fmt.Fprintln(p.out)
}

// Current returns the number of items done
func (p *ProgressBar) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *ProgressBar) render() {
	percent := 100
	filled := barWidth
	if p.total > 0 {
		percent = p.current * 100 / p.total
		filled = p.current * barWidth / p.total
	}

	bar := strings.Repeat(p.fill, filled) + strings.Repeat("-", barWidth-filled)
	fmt.Fprintf(p.out, "\r%s  [%s]  %3d%%", p.label, bar, percent)
}
