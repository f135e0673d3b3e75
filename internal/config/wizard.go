package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard creates a new configuration wizard on stdin/stdout
func NewWizard() *Wizard {
	return NewWizardWithIO(os.Stdin, os.Stdout)
}

// NewWizardWithIO creates a wizard reading answers from in and writing prompts to out
func NewWizardWithIO(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run runs the interactive configuration wizard
func (w *Wizard) Run() (*Config, error) {
	fmt.Fprintln(w.out, "=== Procurer Configuration Wizard ===")
	fmt.Fprintln(w.out)

	cfg := DefaultConfig()
	validator := NewValidator()

	// Voice platform
	for {
		fmt.Fprint(w.out, "ElevenLabs API Key: ")
		key, err := w.readLine()
		if err != nil {
			return nil, err
		}

		if err := validator.ValidateAPIKey(key, "elevenlabs"); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}

		cfg.ElevenLabs.APIKey = key
		break
	}

	for {
		fmt.Fprintf(w.out, "Agent ID [%s]: ", cfg.ElevenLabs.AgentID)
		id, err := w.readLine()
		if err != nil {
			return nil, err
		}

		if id == "" {
			break
		}

		if err := validator.ValidateAgentID(id); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}

		cfg.ElevenLabs.AgentID = id
		break
	}

	fmt.Fprintln(w.out)

	// Store search
	fmt.Fprintln(w.out, "Store search (press Enter to skip):")
	fmt.Fprint(w.out, "Valyu API Key: ")
	valyu, err := w.readLine()
	if err != nil {
		return nil, err
	}
	cfg.Search.ValyuAPIKey = valyu

	fmt.Fprint(w.out, "Firecrawl API Key: ")
	firecrawl, err := w.readLine()
	if err != nil {
		return nil, err
	}
	cfg.Search.FirecrawlAPIKey = firecrawl

	fmt.Fprintln(w.out)

	// Server
	for {
		fmt.Fprintf(w.out, "Server port [%d]: ", cfg.Server.Port)
		raw, err := w.readLine()
		if err != nil {
			return nil, err
		}

		if raw == "" {
			break
		}

		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			fmt.Fprintln(w.out, "Error: port must be a number between 1 and 65535")
			continue
		}

		cfg.Server.Port = port
		break
	}

	// Logging
	for {
		fmt.Fprintf(w.out, "Log level (debug/info/warn/error) [%s]: ", cfg.Logging.Level)
		level, err := w.readLine()
		if err != nil {
			return nil, err
		}

		if level == "" {
			break
		}

		if err := validator.ValidateLogLevel(level); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}

		cfg.Logging.Level = level
		break
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")

	return cfg, nil
}

// readLine reads a line from input
func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
