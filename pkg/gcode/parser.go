// G-code line tokenizer
//
// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package gcode

import (
	"regexp"
	"strconv"
	"strings"
)

// reParenComment matches inline parenthesized comments
var reParenComment = regexp.MustCompile(`\([^)]*\)`)

// Word is a single parsed letter/value pair, e.g. G1 or X10.5.
type Word struct {
	Letter byte
	Value  float64
}

// ParseLine tokenizes one raw line of G-code into letter/value words.
// Semicolon and parenthesized comments are stripped, letters are
// upcased, and whitespace between a letter and its number is allowed.
// Words with a missing or malformed number are dropped. A leading N
// line number is consumed and discarded. The returned slice is empty
// for blank or comment-only lines.
func ParseLine(line string) []Word {
	ln := strings.TrimSpace(line)
	if ln == "" {
		return nil
	}

	// Strip comments: everything after ';', and '(...)' spans
	if idx := strings.IndexByte(ln, ';'); idx >= 0 {
		ln = ln[:idx]
	}
	if strings.IndexByte(ln, '(') >= 0 {
		ln = reParenComment.ReplaceAllString(ln, " ")
	}

	var words []Word
	i := 0
	for i < len(ln) {
		c := ln[i]
		if !isLetter(c) {
			i++
			continue
		}
		letter := upper(c)
		i++
		for i < len(ln) && (ln[i] == ' ' || ln[i] == '\t') {
			i++
		}
		j := i
		for j < len(ln) && isNumeric(ln[j]) {
			j++
		}
		if j == i {
			// Letter with no number
			continue
		}
		val, err := strconv.ParseFloat(ln[i:j], 64)
		i = j
		if err != nil {
			// Malformed numeric payload
			continue
		}
		if letter == 'N' && len(words) == 0 {
			continue
		}
		words = append(words, Word{Letter: letter, Value: val})
	}
	return words
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

func isNumeric(c byte) bool {
	return (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+'
}
