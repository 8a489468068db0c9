package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"

	"github.com/intentlab/intentd/internal/action"
	"github.com/intentlab/intentd/internal/eventbus"
	"github.com/intentlab/intentd/internal/executor"
	"github.com/intentlab/intentd/internal/intent"
	"github.com/intentlab/intentd/internal/planner"
	"github.com/intentlab/intentd/internal/task"
)

var (
	app = kingpin.New("intentd", "Turn natural language commands into gated task plans")

	planCmd  = app.Command("plan", "Parse a command and show the task plan without executing it")
	planText = planCmd.Arg("text", "Command text").Required().String()

	runCmd     = app.Command("run", "Parse a command and execute its plan with interactive approval")
	runText    = runCmd.Arg("text", "Command text").Required().String()
	runYes     = runCmd.Flag("yes", "Approve every task without prompting").Short('y').Bool()
	runLatency = runCmd.Flag("latency", "Simulated handler latency in milliseconds").Default("100").Int()
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	faint  = color.New(color.Faint)
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	switch command {
	case planCmd.FullCommand():
		if err := handlePlan(*planText); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case runCmd.FullCommand():
		if err := handleRun(*runText, *runYes, *runLatency); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func buildPlan(text string) (*intent.ParsedIntent, []*task.Task, error) {
	pi, err := intent.NewRuleParser().Parse(text)
	if err != nil {
		return nil, nil, err
	}
	return pi, planner.New().Plan(pi), nil
}

func handlePlan(text string) error {
	pi, tasks, err := buildPlan(text)
	if err != nil {
		return err
	}

	faint.Printf("intent: %s (confidence %.2f)\n", pi.Intent, pi.Confidence)
	fmt.Println("I'll help you with that. Here's what I'll do:")
	for _, t := range tasks {
		gate := " "
		if t.RequiresApproval {
			gate = yellow.Sprint("!")
		}
		fmt.Printf(" %s %s\n", gate, t.Description)
		faint.Printf("   action: %s\n", t.Action)
	}
	return nil
}

func handleRun(text string, autoApprove bool, latencyMillis int) error {
	pi, tasks, err := buildPlan(text)
	if err != nil {
		return err
	}

	registry := action.NewRegistry()
	simulator := action.NewSimulator(
		action.WithLatency(time.Duration(latencyMillis) * time.Millisecond),
	)
	if err := simulator.RegisterAll(registry); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	faint.Printf("intent: %s (confidence %.2f)\n", pi.Intent, pi.Confidence)

	var oracle executor.Oracle
	if autoApprove {
		oracle = executor.AutoApprove()
	} else {
		oracle = stdinOracle(os.Stdin)
	}

	results := executor.New(registry).Run(ctx, tasks, printSink(), oracle)

	fmt.Printf("\n%d of %d tasks completed\n", len(results), len(tasks))
	return nil
}

// stdinOracle prompts on the terminal for each gated task.
func stdinOracle(in *os.File) executor.Oracle {
	reader := bufio.NewReader(in)
	return executor.OracleFunc(func(ctx context.Context, t *task.Task) (executor.Decision, error) {
		yellow.Printf("approve %q? [y/N] ", t.Description)
		line, err := reader.ReadString('\n')
		if err != nil {
			return executor.DecisionCancelled, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return executor.DecisionApproved, nil
		default:
			return executor.DecisionRejected, nil
		}
	})
}

// printSink renders feedback events as terminal lines.
func printSink() executor.Sink {
	return executor.SinkFunc(func(_ context.Context, ev *eventbus.Event) {
		desc := ""
		if ev.Task != nil {
			desc = ev.Task.Description
		}
		switch ev.Type {
		case eventbus.TypeTaskStarted:
			fmt.Printf("... %s\n", desc)
		case eventbus.TypeTaskCompleted:
			green.Printf("ok  %s\n", desc)
		case eventbus.TypeTaskFailed:
			red.Printf("err %s: %s\n", desc, ev.Error)
		case eventbus.TypeTaskRejected:
			red.Printf("no  %s\n", desc)
		}
	})
}
