package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// printStep prints a pre-flight step label. Called once with an empty
// result to show "...", then again with the final result to overwrite
// that line.
func printStep(label, result string) {
	if result != "" {
		fmt.Printf("\r  %-48s %s\n", label, result)
	} else {
		fmt.Printf("\r  %-48s ...", label)
	}
}

// printProgress renders an in-place progress bar:
// [=====>          ] 3 of 10 load balancer(s) done
func printProgress(current, total, width int) {
	if total == 0 {
		return
	}
	filled := width * current / total
	bar := strings.Repeat("=", filled)
	if filled < width {
		bar += ">"
	}
	bar = fmt.Sprintf("%-*s", width, bar)
	fmt.Printf("\r  [%s] %d of %d load balancer(s) done", bar, current, total)
	if current >= total {
		fmt.Println()
	}
}

// stdinPrompter answers confirm() questions by reading from stdin.
type stdinPrompter struct {
	reader *bufio.Reader
}

func newStdinPrompter() *stdinPrompter {
	return &stdinPrompter{reader: bufio.NewReader(os.Stdin)}
}

// Confirm implements preflight.Prompter.
func (p *stdinPrompter) Confirm(question string) bool {
	for {
		fmt.Printf("%s [y/n]: ", question)
		line, err := p.reader.ReadString('\n')
		if err != nil {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
	}
}

// readLine prompts and returns one trimmed line of stdin input, used for
// the SKIP-DRYRUN override and free-text confirmations.
func (p *stdinPrompter) readLine(prompt string) string {
	fmt.Print(prompt)
	line, _ := p.reader.ReadString('\n')
	return strings.TrimSpace(line)
}
