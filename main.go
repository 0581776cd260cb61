package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kittipatv/should-i-move/agent/contract"
	"github.com/kittipatv/should-i-move/agent/elicit"
	"github.com/kittipatv/should-i-move/agent/llm"
	"github.com/kittipatv/should-i-move/agent/report"
	"github.com/kittipatv/should-i-move/agent/session"
	"github.com/kittipatv/should-i-move/agent/team"
	"github.com/kittipatv/should-i-move/agent/tool"
	"github.com/kittipatv/should-i-move/agent/worker"
	"github.com/kittipatv/should-i-move/api"
	configx "github.com/kittipatv/should-i-move/pkg/config"
	_ "github.com/kittipatv/should-i-move/pkg/logger/autoload"
	openrouterx "github.com/kittipatv/should-i-move/pkg/openrouter"
)

type AppConfig struct {
	ReportsDir string `envconfig:"REPORTS_DIR" split_words:"true" default:"reports"`
}

func main() {
	interactive := flag.Bool("interactive", false, "run a terminal elicitation conversation instead of the HTTP server")
	protocolFlag := flag.String("protocol", string(contract.ProtocolCoordinate), "analysis protocol: coordinate, route or cooperate")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[AppConfig]("")

	openRouterCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")
	openRouterClient := openrouterx.NewClient(*openRouterCfg)
	if openRouterClient == nil {
		panic("failed to initialize openrouter client")
	}

	llmCfg := configx.MustNew[llm.Config]("OPENROUTER")

	costClient, err := llm.NewForRole(ctx, *llmCfg, llm.RoleCost)
	if err != nil {
		log.Fatal().Err(err).Msg("build cost model client")
	}
	sentimentClient, err := llm.NewForRole(ctx, *llmCfg, llm.RoleSentiment)
	if err != nil {
		log.Fatal().Err(err).Msg("build sentiment model client")
	}
	migrationClient, err := llm.NewForRole(ctx, *llmCfg, llm.RoleMigration)
	if err != nil {
		log.Fatal().Err(err).Msg("build migration model client")
	}

	cityDB, err := tool.NewCityDB()
	if err != nil {
		log.Fatal().Err(err).Msg("load city database")
	}
	costCfg := configx.MustNew[tool.CostLookupConfig]("")
	searchCfg := configx.MustNew[tool.RedditSearchConfig]("")

	costWorker := worker.NewCostWorker(costClient, tool.NewCostLookup(*costCfg, cityDB))
	sentimentWorker := worker.NewSentimentWorker(sentimentClient)
	migrationWorker := worker.NewMigrationWorker(migrationClient, tool.NewRedditSearch(*searchCfg))

	teamCfg := configx.MustNew[team.Config]("TEAM")
	analysts := team.New(costWorker, sentimentWorker, migrationWorker, *teamCfg)

	reports := report.NewWriter(appCfg.ReportsDir)

	if *interactive {
		runInteractive(ctx, *llmCfg, analysts, reports, contract.Protocol(*protocolFlag))
		return
	}

	apiCfg := configx.MustNew[api.Config]("API")
	server := api.NewServer(*apiCfg, analysts, session.NewMemoryRepository(), reports)
	if err := server.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("http server")
	}
}

// runInteractive drives the elicitation conversation on the terminal, runs
// the selected protocol and prints where the report landed.
func runInteractive(ctx context.Context, llmCfg llm.Config, analysts *team.Team, reports *report.Writer, protocol contract.Protocol) {
	elicitClient, err := llm.NewForRole(ctx, llmCfg, llm.RoleElicit)
	if err != nil {
		log.Fatal().Err(err).Msg("build elicitation model client")
	}

	asker := &stdinAsker{in: bufio.NewReader(os.Stdin)}
	machine := elicit.NewMachine(elicitClient, asker, elicit.Config{
		RequirePriority: protocol == contract.ProtocolCooperate || protocol == contract.ProtocolRoute,
	})

	opening, err := asker.Ask(ctx, elicit.OpeningQuestion)
	if err != nil {
		log.Fatal().Err(err).Msg("read opening narrative")
	}

	res, err := machine.Run(ctx, opening)
	if errors.Is(err, contract.ErrElicitationExhausted) {
		fmt.Println("Could not gather a complete picture; proceeding with what was shared.")
	} else if err != nil {
		log.Fatal().Err(err).Msg("elicitation conversation")
	}

	decision, err := analysts.Analyze(ctx, res.Profile, protocol)
	if err != nil {
		log.Fatal().Err(err).Msg("analysis")
	}

	path, err := reports.Save(res.Profile, protocol, decision, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("save report")
	}

	fmt.Printf("\n%s\n\nConfidence: %s\nFull report: %s\n", decision.Recommendation, decision.ConfidenceLevel, path)
}

type stdinAsker struct {
	in *bufio.Reader
}

func (a *stdinAsker) Ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Printf("\n%s\n> ", question)
	line, err := a.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
