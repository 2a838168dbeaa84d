// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package batch

import (
	"bufio"
	"errors"
	"io"
)

// maxLineLength limits the length of individual lines read by ReadAddresses.
const maxLineLength = 64 * 1024

// overlongMarker gets appended to lines cut short at maxLineLength. It
// contains a space, so cut lines never pass the syntax check.
const overlongMarker = " (truncated)"

// ReadAddresses returns the lines read from r, without their "\n" or "\r\n"
// terminators. Blank lines are kept, as anything else is left to the syntax
// check. Lines longer than 64KiB are cut and marked, instead of failing the
// whole list.
func ReadAddresses(r io.Reader) ([]string, error) {
	var addrs []string
	br := bufio.NewReader(r)
	line := make([]byte, 0, 256)
	overlong := false
	for {
		chunk, more, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return addrs, nil
			}
			return nil, err
		}
		if room := maxLineLength - len(line); len(chunk) > room {
			line = append(line, chunk[:room]...)
			overlong = true
		} else {
			line = append(line, chunk...)
		}
		if more {
			continue
		}
		addr := string(line)
		if overlong {
			addr += overlongMarker
		}
		addrs = append(addrs, addr)
		line, overlong = line[:0], false
	}
}
