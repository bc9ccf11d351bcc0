package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// PromptForAPIKey prompts for an OpenAI API key with input hidden when
// stdin is a terminal, falling back to a plain line read for piped input.
func PromptForAPIKey(accountLabel string) (string, error) {
	fmt.Printf("API key for %s: ", accountLabel)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		bytes, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("reading api key: %w", err)
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading api key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Confirm prompts for a yes/no answer, defaulting to no on any non-"y"
// input (including a read error).
func Confirm(prompt string) bool {
	fmt.Print(prompt + " [y/N]: ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
