// Command chat is an interactive console client for exercising the
// orchestration core without the HTTP surface: one in-process orchestrator,
// an in-memory context store, and a readline prompt.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/peterh/liner"
	"github.com/sirupsen/logrus"

	"github.com/tripcourier/tripcourier/internal/orchestrator"
	"github.com/tripcourier/tripcourier/internal/providers"
	"github.com/tripcourier/tripcourier/pkg/config"
	"github.com/tripcourier/tripcourier/pkg/contextstore"
	"github.com/tripcourier/tripcourier/pkg/llm"
	"github.com/tripcourier/tripcourier/pkg/ratelimit"
	"github.com/tripcourier/tripcourier/pkg/tools"
)

var (
	configFile = flag.String("config", os.Getenv("CONFIG_FILE"), "Configuration file (YAML)")
	forceAgent = flag.Bool("agent", false, "Force agent mode for every turn")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	if err := run(log); err != nil {
		fmt.Fprintln(os.Stderr, "chat:", err)
		os.Exit(1)
	}
}

func run(log *logrus.Logger) error {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store := contextstore.NewMemoryStore(contextstore.MemoryConfig{})
	defer store.Close()

	var provider llm.Provider
	switch cfg.Model.Provider {
	case "openai":
		provider, err = llm.NewOpenAIProvider(cfg.Model.OpenAIKey, cfg.Model.OpenAIModel)
	case "sagemaker":
		provider, err = llm.NewSageMakerProvider(ctx, cfg.Model.SageMakerEndpoint, cfg.Model.AWSRegion)
	default:
		provider = llm.NewMockProvider()
	}
	if err != nil {
		return err
	}

	registry, err := providers.BuildRegistry(providers.NewTieredCatalog(nil, log))
	if err != nil {
		return err
	}
	invoker := tools.NewInvoker(registry, ratelimit.NewTimeoutManager(cfg.Orchestrator.ToolTimeout), tools.WithLogger(log))

	orch := orchestrator.New(store, provider, invoker, orchestrator.Config{
		MaxIterations: cfg.Orchestrator.MaxIterations,
		MaxTokens:     cfg.Model.MaxTokens,
		Temperature:   cfg.Model.Temperature,
		ModelTimeout:  cfg.Orchestrator.ModelTimeout,
	}, orchestrator.WithLogger(log))

	sessionID := "chat-" + uuid.NewString()[:8]
	fmt.Printf("tripcourier chat (session %s, model %s)\n", sessionID, provider.Name())
	fmt.Println("Commands: /tools, /prefs, /history, /quit")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := filepath.Join(os.TempDir(), ".tripcourier_chat_history")
	if f, err := os.Open(historyPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	for {
		input, err := line.Prompt("you> ")
		if err != nil {
			// Ctrl-C or EOF ends the session.
			fmt.Println()
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if done := command(ctx, input, store, registry, sessionID); done {
				return nil
			}
			continue
		}

		turnCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		resp, err := orch.Turn(turnCtx, orchestrator.Request{
			SessionID:      sessionID,
			Message:        input,
			ForceAgentMode: *forceAgent,
		})
		cancel()
		if err != nil {
			fmt.Println("error:", err)
			continue
		}

		fmt.Printf("courier> %s\n", resp.Text)
		if len(resp.ToolsUsed) > 0 {
			fmt.Printf("  [%s mode, %d steps, tools: %s]\n", resp.Mode, resp.Iterations, strings.Join(resp.ToolsUsed, ", "))
		}
		for _, action := range resp.SuggestedActions {
			fmt.Printf("  next: %s\n", action)
		}
		if resp.ErrorCode != "" {
			fmt.Printf("  [error: %s]\n", resp.ErrorCode)
		}
	}
}

// command handles slash commands; returns true to exit.
func command(ctx context.Context, input string, store contextstore.Store, registry *tools.Registry, sessionID string) bool {
	switch input {
	case "/quit", "/exit":
		return true
	case "/tools":
		for _, d := range registry.List() {
			fmt.Printf("  %-18s %s\n", d.Name, d.Description)
		}
	case "/prefs":
		c, err := store.Get(ctx, sessionID)
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		p := c.Preferences
		fmt.Printf("  home: %q  style: %q  budget: %.0f %s\n", p.HomeCity, p.TravelStyle, p.Budget, p.Currency)
		fmt.Printf("  flight: cabin=%q airlines=%v avoided=%v\n", p.Flight.CabinClass, p.Flight.PreferredAirlines, p.Flight.AvoidedAirlines)
		fmt.Printf("  hotel: stars>=%d chain=%q amenities=%v\n", p.Hotel.MinStars, p.Hotel.Chain, p.Hotel.Amenities)
		fmt.Printf("  interests: %v  dietary: %v  turns: %d\n", p.Interests, p.Dietary, c.TotalInteractions)
	case "/history":
		turns, err := store.Log(ctx, sessionID)
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		for _, t := range turns {
			fmt.Printf("  %s: %s\n", t.Role, t.Content)
		}
	default:
		fmt.Println("unknown command:", input)
	}
	return false
}
