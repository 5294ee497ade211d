package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplice(t *testing.T) {
	const five = "L1\nL2\nL3\nL4\nL5"

	tests := []struct {
		name       string
		content    string
		start, end int
		code       string
		want       string
	}{
		{name: "replace range", content: five, start: 2, end: 3, code: "X", want: "L1\nX\nL4\nL5"},
		{name: "replace single line", content: five, start: 1, end: 1, code: "A\nB", want: "A\nB\nL2\nL3\nL4\nL5"},
		{name: "replace last line", content: five, start: 5, end: 5, code: "Z", want: "L1\nL2\nL3\nL4\nZ"},
		{name: "empty code removes lines", content: five, start: 2, end: 4, code: "", want: "L1\nL5"},
		{name: "zero end inserts before start", content: five, start: 3, end: 0, code: "new", want: "L1\nL2\nnew\nL3\nL4\nL5"},
		{name: "end past file is clamped", content: five, start: 4, end: 99, code: "tail", want: "L1\nL2\nL3\ntail"},
		{name: "start past file appends", content: "a\nb", start: 10, end: 12, code: "c", want: "a\nb\nc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Splice(tt.content, tt.start, tt.end, tt.code))
		})
	}
}

func TestLineWindow(t *testing.T) {
	const five = "L1\nL2\nL3\nL4\nL5"

	assert.Equal(t, five, LineWindow(five, 0, 0))
	assert.Equal(t, "L2\nL3", LineWindow(five, 2, 3))
	assert.Equal(t, "L4\nL5", LineWindow(five, 4, 0))
	assert.Equal(t, "L5", LineWindow(five, 5, 50))
	assert.Equal(t, "", LineWindow(five, 9, 10))
}
