package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"relaycore.dev/agentcore/common/id"
	"relaycore.dev/agentcore/core/config"
	"relaycore.dev/agentcore/core/db"
	"relaycore.dev/agentcore/internal/cost"
	"relaycore.dev/agentcore/internal/evaluator"
	"relaycore.dev/agentcore/internal/llmprovider"
	"relaycore.dev/agentcore/internal/memory"
	"relaycore.dev/agentcore/internal/model"
	"relaycore.dev/agentcore/internal/orchestrator"
	"relaycore.dev/agentcore/internal/safety"
	"relaycore.dev/agentcore/internal/store"
)

// relayctl runs a single task end to end against a live orchestrator and
// prints its result, or drops into a REPL when invoked with no arguments.
// It never starts an HTTP listener or cron scheduler; those are relayd's job.
func main() {
	ctx := context.Background()

	_ = godotenv.Load()

	cfg, err := config.Load(config.ServiceTypeCLI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	apiKey := cfg.ModelProvider.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("MODEL_API_KEY")
	}
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "MODEL_API_KEY is required")
		os.Exit(1)
	}

	if err := id.Init(cfg.SnowflakeNodeID); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize snowflake id generator: %v\n", err)
		os.Exit(1)
	}

	provider, err := llmprovider.NewOpenAI(llmprovider.Config{
		APIKey:  apiKey,
		BaseURL: cfg.ModelProvider.BaseURL,
		Model:   cfg.ModelProvider.Model,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build model provider: %v\n", err)
		os.Exit(1)
	}

	var stores *store.Stores
	var learnings memory.LearningStore
	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database unavailable, running without persistence (%v)\n", err)
	} else {
		defer database.Close()
		stores = store.NewStores(database.Queries())
		learnings = stores.Learnings()
	}

	orch := &orchestrator.Orchestrator{
		Provider: provider,
		Executor: &orchestrator.Executor{Provider: provider},
		Evaluator: &evaluator.Evaluator{
			Checkers: []evaluator.Checker{
				&evaluator.StaticAnalyzerChecker{Runner: evaluator.ExecCommandRunner{}},
				&evaluator.TestRunnerChecker{Runner: evaluator.ExecCommandRunner{}},
			},
			Judge: &evaluator.Judge{Provider: provider},
		},
		Safety:    &safety.Checker{},
		Cost:      cost.NewTracker(),
		Extractor: &memory.Extractor{Provider: provider},
		WorkDir:   os.Getenv("AGENTCORE_WORKDIR"),
	}
	if stores != nil {
		orch.Tasks = stores.Tasks()
		orch.Cycles = stores.Cycles()
		orch.Usage = stores.Usage()
		orch.Learnings = learnings
		orch.SkillWriter = stores.SkillWriter()
		orch.Decayer = &memory.Decayer{Store: learnings}
	}

	orchCfg := orchestrator.Config{
		MaxIterations:      cfg.Orchestrator.MaxIterations,
		QualityThreshold:   cfg.Orchestrator.QualityThreshold,
		SkipEvalConfidence: cfg.Orchestrator.SkipEvalConfidence,
		Safety: safety.Config{
			MaxTokens:           cfg.Orchestrator.MaxTokens,
			MaxCostUSD:          cfg.Orchestrator.MaxCostUSD,
			MaxDurationSecs:     int64(cfg.Orchestrator.MaxDurationSeconds),
			RegressionThreshold: cfg.Orchestrator.RegressionThreshold,
		},
	}

	var recaller *memory.Recaller
	var selector *memory.SkillSelector
	if stores != nil {
		recaller = &memory.Recaller{Learnings: learnings, Skills: stores.Skills()}
		selector = &memory.SkillSelector{Skills: stores.Skills()}
	}

	runTask := func(description string) {
		task := model.TaskInput{ID: id.New(), Description: description}
		sc := buildSessionContext(ctx, recaller, selector, task, cfg)

		result, err := orch.Run(ctx, sc, task, orchCfg, func(ev model.ProgressEvent) {
			fmt.Fprintf(os.Stderr, "[%s] iteration=%d\n", ev.Kind, ev.Iteration)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "task failed: %v\n", err)
			return
		}

		fmt.Printf("\n--- result (score %.2f, %d iteration(s), $%.4f) ---\n", result.FinalScore, result.Iterations, result.CostUSD)
		fmt.Println(result.Output)
	}

	if len(os.Args) > 1 {
		runTask(strings.Join(os.Args[1:], " "))
		return
	}

	fmt.Fprintln(os.Stderr, "relayctl ready. Enter a task description (or 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		runTask(line)
	}
}

func buildSessionContext(ctx context.Context, recaller *memory.Recaller, selector *memory.SkillSelector, task model.TaskInput, cfg config.Config) model.SessionContext {
	var recall model.RecallResult
	if recaller != nil {
		if r, err := recaller.Recall(ctx, task.Category, task.Description, 0); err == nil {
			recall = r
		}
	}

	var ranked []model.RankedSkill
	if selector != nil {
		suggested := make(map[string]bool, len(recall.TopSkills))
		for _, s := range recall.TopSkills {
			suggested[s.Skill.Name] = true
		}
		if rs, err := selector.Select(ctx, task.Description, task.Category, suggested, nil); err == nil {
			ranked = rs
		}
	}

	return model.SessionContext{
		RankedSkills:       ranked,
		Recall:             recall,
		ModelContextWindow: cfg.ModelProvider.ContextWindow,
	}
}
