package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

var (
	inputFile = os.Stdin
)

func guidedInitialization(config *Config) error {
	scanner := bufio.NewScanner(inputFile)

	input, err := ask(scanner, "Enter Cloudflare account id")
	if err != nil {
		return err
	}
	if input != "" {
		config.AccountID = input
	}

	input, err = ask(scanner, "Enter KV namespace id")
	if err != nil {
		return err
	}
	if input != "" {
		config.NamespaceID = input
	}

	input, err = ask(scanner, fmt.Sprintf("Enter asset directory [default: %s]", config.AssetDir))
	if err != nil {
		return err
	}
	if input != "" {
		config.AssetDir = input
	}

	input, err = ask(scanner, fmt.Sprintf("Enter index artifact path [default: %s]", config.Output))
	if err != nil {
		return err
	}
	if input != "" {
		config.Output = input
	}

	return nil
}

func ask(scanner *bufio.Scanner, prompt string) (string, error) {
	fmt.Printf("%s: ", prompt)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("could not read user input: %w", err)
		}
		return "", nil // EOF or closed input
	}
	return strings.TrimSpace(scanner.Text()), nil
}
