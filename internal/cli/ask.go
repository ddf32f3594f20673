package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aiox-platform/memchat/internal/chat"
	"github.com/aiox-platform/memchat/internal/config"
	"github.com/aiox-platform/memchat/internal/llm"
	"github.com/aiox-platform/memchat/internal/orchestrator"
	"github.com/aiox-platform/memchat/internal/session"
)

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask MESSAGE [MESSAGE...]",
		Short: "Run chat turns in-process and print each result",
		Long: "Runs one turn per MESSAGE against a fresh in-memory session, so later messages " +
			"see the memory built by earlier ones. Each result bundle, debug prompts included, " +
			"is printed as JSON.",
		Args: cobra.MinimumNArgs(1),
		RunE: runAsk,
	}
	cmd.Flags().Bool("compact", false, "Print one JSON object per line")
	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	compact, _ := cmd.Flags().GetBool("compact")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, err := newLocalService(cfg)
	if err != nil {
		return err
	}

	var sessionID string
	for _, msg := range args {
		turn, err := svc.Send(cmd.Context(), sessionID, msg)
		if err != nil {
			return fmt.Errorf("chat turn: %w", err)
		}
		sessionID = turn.SessionID

		res := turn.Result
		out := chat.ChatResponse{
			SessionID:           turn.SessionID,
			Reply:               res.Response,
			Memory:              res.UpdatedMemory,
			Analysis:            res.Analysis,
			ClarificationNeeded: res.ClarificationNeeded,
			NoNewInfo:           res.NoNewInfo,
			DebugInfo:           res.DebugInfo,
		}

		var b []byte
		if compact {
			b, err = json.Marshal(out)
		} else {
			b, err = json.MarshalIndent(out, "", "  ")
		}
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
	}
	return nil
}

// newLocalService builds a chat service with an in-memory store and no
// event publishing.
func newLocalService(cfg *config.Config) (*chat.Service, error) {
	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, err
	}
	pipeline := orchestrator.New(provider, pipelineConfig(cfg.LLM))
	store := session.NewMemoryStore(cfg.Session.TTL, cfg.Session.MaxSessions, cfg.Session.MaxHistory)
	return chat.NewService(store, pipeline, nil, windows(cfg.Session)), nil
}

func pipelineConfig(cfg config.LLMConfig) orchestrator.Config {
	return orchestrator.Config{
		MemoryTemperature:   cfg.MemoryTemperature,
		ResponseTemperature: cfg.ResponseTemperature,
		MaxTokens:           cfg.MaxTokens,
	}
}

func windows(cfg config.SessionConfig) chat.Windows {
	return chat.Windows{Recent: cfg.RecentWindow, Current: cfg.CurrentWindow}
}
