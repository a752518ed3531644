// File: lixenwraith/buildconfig/conflict.go
package buildconfig

import (
	"bytes"
	"fmt"
	"strings"
)

const markerLen = 7

// ConflictSides is a document with merge markers split into both sides.
type ConflictSides struct {
	Ours        []byte
	Theirs      []byte
	OursLabel   string
	TheirsLabel string
	// Blocks counts the conflict blocks found.
	Blocks int
}

type splitState int

const (
	stateCommon splitState = iota
	stateOurs
	stateBase
	stateTheirs
)

// SplitConflict separates a document containing <<<<<<<, |||||||, =======
// and >>>>>>> markers into its two sides. Lines outside conflict blocks go to
// both sides; a diff3 base section is dropped. A document without markers
// yields two identical sides and Blocks == 0.
func SplitConflict(data []byte) (ConflictSides, error) {
	var sides ConflictSides
	var ours, theirs bytes.Buffer
	state := stateCommon
	blockStart, lineNumber := 0, 0

	for _, line := range strings.SplitAfter(string(data), "\n") {
		if line == "" {
			continue
		}
		lineNumber++

		marker, label := parseMarker(line)
		switch {
		case marker == "<<<<<<<":
			if state != stateCommon {
				return ConflictSides{}, fmt.Errorf("%w: nested conflict start at line %d (block opened at line %d)", ErrMalformedConflict, lineNumber, blockStart)
			}
			state = stateOurs
			blockStart = lineNumber
			if sides.OursLabel == "" {
				sides.OursLabel = label
			}

		case marker == "|||||||":
			if state != stateOurs {
				return ConflictSides{}, fmt.Errorf("%w: unexpected base marker at line %d", ErrMalformedConflict, lineNumber)
			}
			state = stateBase

		case marker == "=======" && state != stateCommon:
			if state == stateTheirs {
				return ConflictSides{}, fmt.Errorf("%w: duplicate separator at line %d", ErrMalformedConflict, lineNumber)
			}
			state = stateTheirs

		case marker == ">>>>>>>":
			if state != stateTheirs {
				return ConflictSides{}, fmt.Errorf("%w: conflict end without separator at line %d", ErrMalformedConflict, lineNumber)
			}
			state = stateCommon
			sides.Blocks++
			if sides.TheirsLabel == "" {
				sides.TheirsLabel = label
			}

		default:
			switch state {
			case stateCommon:
				ours.WriteString(line)
				theirs.WriteString(line)
			case stateOurs:
				ours.WriteString(line)
			case stateTheirs:
				theirs.WriteString(line)
			}
		}
	}

	if state != stateCommon {
		return ConflictSides{}, fmt.Errorf("%w: conflict opened at line %d is never closed", ErrMalformedConflict, blockStart)
	}

	sides.Ours = ours.Bytes()
	sides.Theirs = theirs.Bytes()
	return sides, nil
}

// parseMarker recognizes a conflict marker at the start of line. Markers are
// exactly seven characters followed by end of line or a space and a label.
func parseMarker(line string) (marker, label string) {
	trimmed := strings.TrimRight(line, "\r\n")
	if len(trimmed) < markerLen {
		return "", ""
	}

	head := trimmed[:markerLen]
	switch head {
	case "<<<<<<<", "|||||||", "=======", ">>>>>>>":
	default:
		return "", ""
	}

	rest := trimmed[markerLen:]
	if rest == "" {
		return head, ""
	}
	if rest[0] != ' ' && rest[0] != '\t' {
		return "", ""
	}
	if head == "=======" {
		return "", ""
	}
	return head, strings.TrimSpace(rest)
}
