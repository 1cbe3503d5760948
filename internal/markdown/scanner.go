// Package markdown parses hand-authored question documents into
// self-contained blocks and validates them against the question bank's
// storage constraints.
//
// The accepted document shape is a repeated five-part unit:
//
//	# Topic: <name>
//	## Subtopic: <name>
//	### Difficulty: Basic|Advanced
//	#### Type: <name>
//	**Question:** <text>
//	**Answer:** <text>
//	**Notes for Tutor:** <text>   (optional)
//
// Header lines must start at column zero; the Question/Answer/Notes markers
// may be indented.
package markdown

import "strings"

const (
	topicMarker      = "# Topic:"
	subtopicMarker   = "## Subtopic:"
	difficultyMarker = "### Difficulty:"
	typeMarker       = "#### Type:"
	questionMarker   = "**Question:**"
	answerMarker     = "**Answer:**"
	notesMarker      = "**Notes for Tutor:**"
)

// Block is one self-contained question unit. Every block carries its own
// complete header set; no field is ever inherited from a neighbouring block.
type Block struct {
	Topic      string
	Subtopic   string
	Difficulty string
	Type       string

	Question string
	Answer   string
	Notes    *string

	// HasQuestion / HasAnswer record whether the markers were present at
	// all, which is distinct from the captured text being empty.
	HasQuestion bool
	HasAnswer   bool

	// StartLine is the 1-indexed line of the topic header; EndLine is the
	// last line belonging to the block.
	StartLine int
	EndLine   int
}

// Scan splits a document into question blocks, in document order.
//
// A block opens at a topic header whose next three non-blank lines are the
// subtopic, difficulty and type headers in exactly that order. Anything
// else abandons the prospective block: scanning resumes at the offending
// line, so a topic header is never merged into a neighbour. Once the header
// set is complete, every following line belongs to the block until the next
// topic header or end of input. Scanning never rejects header values; value
// checks belong to EvaluateContent.
func Scan(content string) []Block {
	lines := splitLines(content)

	var blocks []Block
	i := 0
	for i < len(lines) {
		topic, ok := matchHeader(lines[i], topicMarker)
		if !ok {
			i++
			continue
		}

		block := Block{Topic: topic, StartLine: i + 1}
		next, ok := scanHeaderSet(lines, i+1, &block)
		if !ok {
			i = next
			continue
		}

		end := next
		for end < len(lines) {
			if _, isTopic := matchHeader(lines[end], topicMarker); isTopic {
				break
			}
			end++
		}

		scanBody(lines[next:end], &block)
		block.EndLine = end
		blocks = append(blocks, block)
		i = end
	}

	return blocks
}

// scanHeaderSet consumes the subtopic, difficulty and type headers expected
// directly after a topic line, skipping blank lines between them. It returns
// the index of the first body line and true, or the index scanning should
// resume from and false when the sequence is broken.
func scanHeaderSet(lines []string, start int, block *Block) (int, bool) {
	expected := []struct {
		marker string
		dest   *string
	}{
		{subtopicMarker, &block.Subtopic},
		{difficultyMarker, &block.Difficulty},
		{typeMarker, &block.Type},
	}

	i := start
	for _, header := range expected {
		for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
			i++
		}
		if i >= len(lines) {
			return i, false
		}
		value, ok := matchHeader(lines[i], header.marker)
		if !ok {
			return i, false
		}
		*header.dest = value
		i++
	}

	return i, true
}

// bodySection tracks which marker the body scanner is currently collecting
// text for.
type bodySection int

const (
	sectionNone bodySection = iota
	sectionQuestion
	sectionAnswer
	sectionNotes
)

// scanBody extracts question, answer and tutor-note text from the lines
// following a complete header set. The first occurrence of each marker wins;
// later duplicates are kept as plain content of the current section.
func scanBody(lines []string, block *Block) {
	var question, answer, notes []string
	section := sectionNone

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if !block.HasQuestion && strings.HasPrefix(trimmed, questionMarker) {
			block.HasQuestion = true
			section = sectionQuestion
			if rest := strings.TrimSpace(trimmed[len(questionMarker):]); rest != "" {
				question = append(question, rest)
			}
			continue
		}
		if !block.HasAnswer && strings.HasPrefix(trimmed, answerMarker) {
			block.HasAnswer = true
			section = sectionAnswer
			if rest := strings.TrimSpace(trimmed[len(answerMarker):]); rest != "" {
				answer = append(answer, rest)
			}
			continue
		}
		if block.Notes == nil && strings.HasPrefix(trimmed, notesMarker) {
			section = sectionNotes
			empty := ""
			block.Notes = &empty
			if rest := strings.TrimSpace(trimmed[len(notesMarker):]); rest != "" {
				notes = append(notes, rest)
			}
			continue
		}

		switch section {
		case sectionQuestion:
			question = append(question, line)
		case sectionAnswer:
			answer = append(answer, line)
		case sectionNotes:
			notes = append(notes, line)
		}
	}

	block.Question = collapseText(question)
	block.Answer = collapseText(answer)

	if block.Notes != nil {
		text := collapseText(notes)
		if text == "" {
			block.Notes = nil
		} else {
			block.Notes = &text
		}
	}
}

// matchHeader matches a header marker at column zero and returns the
// trimmed value after it. Lines with a marker but no value do not match.
func matchHeader(line, marker string) (string, bool) {
	if !strings.HasPrefix(line, marker) {
		return "", false
	}
	value := strings.TrimSpace(line[len(marker):])
	if value == "" {
		return "", false
	}
	return value, true
}

// collapseText joins captured lines, squeezing runs of blank lines down to
// a single separator and trimming surrounding whitespace. Inner formatting
// such as list indentation is preserved.
func collapseText(lines []string) string {
	var out []string
	blankRun := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blankRun++
			continue
		}
		if blankRun > 0 && len(out) > 0 {
			out = append(out, "")
		}
		blankRun = 0
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// splitLines normalises line endings so CRLF documents scan identically to
// LF ones.
func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.Split(content, "\n")
}
