package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gracebase/content-pipeline/internal/types"
)

// doneMarker is the sentinel line the streaming prompt asks the model to
// emit once every field is complete.
const doneMarker = "DONE"

// lineScanner reassembles complete lines from arbitrarily chunked stream
// text. Model chunks split mid-line, so the tail is buffered until its
// newline arrives.
type lineScanner struct {
	buf strings.Builder
}

// feed appends a chunk and returns any lines completed by it.
func (s *lineScanner) feed(chunk string) []string {
	s.buf.WriteString(chunk)
	text := s.buf.String()

	idx := strings.LastIndexByte(text, '\n')
	if idx < 0 {
		return nil
	}

	complete := text[:idx]
	s.buf.Reset()
	s.buf.WriteString(text[idx+1:])

	var lines []string
	for _, line := range strings.Split(complete, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// flush returns any buffered trailing line once the stream has ended.
func (s *lineScanner) flush() []string {
	line := strings.TrimSpace(s.buf.String())
	s.buf.Reset()
	if line == "" {
		return nil
	}
	return []string{line}
}

// parseDeltaLine parses one streamed line into a delta. The DONE sentinel
// returns done=true with no delta. Code-fence lines are tolerated and
// skipped, since models wrap output in fences despite instructions.
func parseDeltaLine(line string) (delta *types.Delta, done bool, err error) {
	if line == doneMarker {
		return nil, true, nil
	}
	if strings.HasPrefix(line, "```") {
		return nil, false, nil
	}

	var d types.Delta
	if err := json.Unmarshal([]byte(line), &d); err != nil {
		return nil, false, fmt.Errorf("malformed delta line %q: %w", line, err)
	}
	if _, _, err := d.SplitPath(); err != nil {
		return nil, false, err
	}
	return &d, false, nil
}
