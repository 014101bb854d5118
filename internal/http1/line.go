// File: internal/http1/line.go
// Package http1
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package http1

import (
	"bufio"
	"errors"
	"strings"
)

var errLineTooLong = errors.New("http1: line exceeds size limit")

// readLine reads one LF-terminated line, stripping CR and LF. It
// returns the line, the number of raw bytes consumed, and an error for
// I/O failures or an over-limit line.
func readLine(br *bufio.Reader, limit int) (string, int, error) {
	var sb strings.Builder
	n := 0
	for {
		b, err := br.ReadByte()
		if err != nil {
			return "", n, err
		}
		n++
		if b == '\n' {
			break
		}
		if b != '\r' {
			sb.WriteByte(b)
		}
		if limit > 0 && sb.Len() > limit {
			return "", n, errLineTooLong
		}
	}
	return sb.String(), n, nil
}
