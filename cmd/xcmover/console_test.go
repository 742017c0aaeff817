package main

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func promptFromInput(input string) *stdinPrompter {
	return &stdinPrompter{reader: bufio.NewReader(strings.NewReader(input))}
}

func TestStdinPrompter_ConfirmAcceptsYesVariants(t *testing.T) {
	assert.True(t, promptFromInput("y\n").Confirm("proceed?"))
	assert.True(t, promptFromInput("yes\n").Confirm("proceed?"))
	assert.True(t, promptFromInput("YES\n").Confirm("proceed?"))
}

func TestStdinPrompter_ConfirmAcceptsNoVariants(t *testing.T) {
	assert.False(t, promptFromInput("n\n").Confirm("proceed?"))
	assert.False(t, promptFromInput("no\n").Confirm("proceed?"))
}

func TestStdinPrompter_ConfirmReprompsOnGarbage(t *testing.T) {
	assert.True(t, promptFromInput("maybe\ny\n").Confirm("proceed?"))
}

func TestStdinPrompter_ConfirmReturnsFalseOnEOF(t *testing.T) {
	assert.False(t, promptFromInput("").Confirm("proceed?"))
}

func TestStdinPrompter_ReadLineTrimsWhitespace(t *testing.T) {
	p := promptFromInput("  SKIP-DRYRUN  \n")
	assert.Equal(t, "SKIP-DRYRUN", p.readLine("type it: "))
}
