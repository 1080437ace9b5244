package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/deepnoodle-ai/dagflow"
)

// CLI configuration
type Config struct {
	WorkflowFile   string
	Inputs         map[string]any
	LogsDir        string
	MaxConcurrency int
	Timeout        time.Duration
	Verbose        bool
	JSON           bool
}

func main() {
	config := parseFlags()

	if config.WorkflowFile == "" {
		color.Red("Error: workflow file is required")
		flag.Usage()
		os.Exit(1)
	}
	if _, err := os.Stat(config.WorkflowFile); os.IsNotExist(err) {
		color.Red("Error: workflow file '%s' not found", config.WorkflowFile)
		os.Exit(1)
	}

	logger := setupLogger(config)

	color.Blue("Loading workflow from: %s", config.WorkflowFile)
	wf, err := dagflow.LoadFile(config.WorkflowFile)
	if err != nil {
		log.Fatalf("Failed to load workflow: %v", err)
	}
	color.Cyan("Workflow: %s", wf.Name())
	if wf.Description() != "" {
		color.White("Description: %s", wf.Description())
	}

	var stepLogger dagflow.StepLogger
	if config.LogsDir != "" {
		stepLogger = dagflow.NewFileStepLogger(config.LogsDir)
		color.Blue("Step logs: %s", config.LogsDir)
	} else {
		stepLogger = dagflow.NewNullStepLogger()
	}

	executor := dagflow.NewStepExecutor(dagflow.ExecutorOptions{
		StepLogger: stepLogger,
		Logger:     logger,
	})
	engine := dagflow.NewEngine(dagflow.EngineOptions{
		Executor:        executor,
		MaxConcurrency:  config.MaxConcurrency,
		WorkflowTimeout: config.Timeout,
		Formatter:       dagflow.NewConsoleFormatter(config.Verbose),
		Logger:          logger,
	})

	ctx := context.Background()
	workflowID, err := engine.RegisterWorkflow(ctx, wf)
	if err != nil {
		log.Fatalf("Failed to register workflow: %v", err)
	}
	if config.Timeout > 0 {
		color.Yellow("Timeout: %v", config.Timeout)
	}

	executionID, err := engine.Execute(ctx, workflowID, config.Inputs)
	if err != nil {
		log.Fatalf("Failed to start execution: %v", err)
	}
	color.Green("Starting execution (ID: %s)...\n", executionID)

	execution, err := engine.GetExecution(executionID)
	if err != nil {
		log.Fatalf("Failed to look up execution: %v", err)
	}
	start := time.Now()
	runErr := execution.Wait(ctx)

	snapshot, err := engine.GetExecutionStatus(executionID)
	if err != nil {
		log.Fatalf("Failed to get execution status: %v", err)
	}
	printSummary(config, snapshot, time.Since(start), runErr)
	if runErr != nil {
		os.Exit(1)
	}
}

func parseFlags() *Config {
	config := &Config{Inputs: map[string]any{}}

	var inputs stringList
	flag.StringVar(&config.WorkflowFile, "file", "", "Path to the workflow YAML file")
	flag.StringVar(&config.LogsDir, "logs-dir", "", "Directory for per-execution step logs (JSONL)")
	flag.IntVar(&config.MaxConcurrency, "max-concurrency", 0, "Maximum steps running at once (default 10)")
	flag.DurationVar(&config.Timeout, "timeout", 0, "Workflow timeout (e.g. 5m); 0 disables")
	flag.BoolVar(&config.Verbose, "v", false, "Verbose output including step outputs and debug logs")
	flag.BoolVar(&config.JSON, "json", false, "Print the final execution status as JSON")
	flag.Var(&inputs, "input", "Initial state entry as key=value (repeatable)")
	flag.Parse()

	if config.WorkflowFile == "" && flag.NArg() > 0 {
		config.WorkflowFile = flag.Arg(0)
	}
	for _, input := range inputs {
		key, value, found := strings.Cut(input, "=")
		if !found {
			color.Red("Error: invalid -input %q, expected key=value", input)
			os.Exit(1)
		}
		config.Inputs[key] = value
	}
	return config
}

func setupLogger(config *Config) *slog.Logger {
	level := slog.LevelInfo
	if config.Verbose {
		level = slog.LevelDebug
	}
	if config.JSON {
		return dagflow.NewJSONLogger(level)
	}
	return dagflow.NewLogger(level)
}

func printSummary(config *Config, snapshot *dagflow.ExecutionSnapshot, duration time.Duration, runErr error) {
	fmt.Println()
	if config.JSON {
		data, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal status: %v", err)
		}
		fmt.Println(string(data))
		return
	}
	color.White("Execution completed in %v", duration)
	color.White("Status: %s", snapshot.Status)
	if runErr != nil {
		color.Red("Error: %v", runErr)
	}
	if snapshot.Status == dagflow.ExecutionStatusCompleted {
		color.Green("Execution successful!")
	}
	if len(snapshot.FailedSteps) > 0 {
		color.Red("Failed steps: %s", strings.Join(snapshot.FailedSteps, ", "))
	}
	if len(snapshot.SkippedSteps) > 0 {
		color.Yellow("Skipped steps: %s", strings.Join(snapshot.SkippedSteps, ", "))
	}
}

// stringList collects repeated flag values
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}
