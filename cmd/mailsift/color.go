// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/siemens/mailsift/types"

	"github.com/muesli/termenv"
)

var (
	verifyingStyle = termenv.Style{}.Foreground(termenv.ANSIYellow)
	validStyle     = termenv.Style{}.Foreground(termenv.ANSIGreen)
	invalidStyle   = termenv.Style{}.Foreground(termenv.ANSIRed)
	droppedStyle   = termenv.Style{}.Foreground(termenv.ANSIMagenta)
)

var listNameStyle = termenv.Style{}.Bold()

// classStyle returns the style for rendering a classification.
func classStyle(class types.Classification) termenv.Style {
	if class.IsValid() {
		return validStyle
	}
	return invalidStyle
}

// classMark returns the check mark for a classification.
func classMark(class types.Classification) string {
	if class.IsValid() {
		return "✔"
	}
	return "×"
}
