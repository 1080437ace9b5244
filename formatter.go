package dagflow

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
)

// WorkflowFormatter interface for pretty output
type WorkflowFormatter interface {
	PrintStepStart(stepName string, actionType string)
	PrintStepOutput(stepName string, content any)
	PrintStepError(stepName string, err error)
}

// ConsoleFormatter writes colorized step progress to stdout.
type ConsoleFormatter struct {
	// Verbose includes step outputs, not just state transitions.
	Verbose bool
}

func NewConsoleFormatter(verbose bool) *ConsoleFormatter {
	return &ConsoleFormatter{Verbose: verbose}
}

func (f *ConsoleFormatter) PrintStepStart(stepName string, actionType string) {
	if actionType == "" {
		color.Cyan("▶ %s", stepName)
		return
	}
	color.Cyan("▶ %s (%s)", stepName, actionType)
}

func (f *ConsoleFormatter) PrintStepOutput(stepName string, content any) {
	color.Green("✔ %s", stepName)
	if !f.Verbose || content == nil {
		return
	}
	data, err := json.MarshalIndent(content, "  ", "  ")
	if err != nil {
		fmt.Printf("  %v\n", content)
		return
	}
	fmt.Printf("  %s\n", data)
}

func (f *ConsoleFormatter) PrintStepError(stepName string, err error) {
	color.Red("✘ %s: %v", stepName, err)
}
