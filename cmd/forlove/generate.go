package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/forlove/internal/candidate"
	"github.com/kalambet/forlove/internal/config"
	"github.com/kalambet/forlove/internal/fallback"
	"github.com/kalambet/forlove/internal/generator"
	"github.com/kalambet/forlove/internal/identity"
	"github.com/kalambet/forlove/internal/orchestrator"
	"github.com/kalambet/forlove/internal/presenter"
	"github.com/kalambet/forlove/internal/slots"
	"github.com/kalambet/forlove/internal/storage"
)

// lastInputKey holds the content of the previous generate, for refresh.
const lastInputKey = "forlove.generate.lastInput"

var generateCmd = &cobra.Command{
	Use:   "generate [content]",
	Short: "Generate three candidates with the current slot",
	Long: `Generate three candidates with the current slot (or --slot).

The first candidate is written to stdout as if inserted into a text field.
--cycle moves the preview through the alternates, --commit-alternate
replaces the written text with the alternate in preview.

Examples:
  forlove generate "在吗"
  forlove generate --slot 2 "今天好累不想上班"
  forlove generate --cycle 1 --commit-alternate "周末有空吗"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := generateOptionsFrom(cmd)
		opts.Content = strings.Join(args, " ")
		return runGenerateCommand(cmd.Context(), opts)
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Generate again with the previous content",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := generateOptionsFrom(cmd)
		opts.Refresh = true
		return runGenerateCommand(cmd.Context(), opts)
	},
}

func init() {
	for _, c := range []*cobra.Command{generateCmd, refreshCmd} {
		c.Flags().Int("slot", -1, "slot id 0-4 (default: the current active slot)")
		c.Flags().Int("sub", -1, "sub-category index for this run only")
		c.Flags().String("context", "", "earlier conversation to pass along")
		c.Flags().Int("cycle", 0, "cycle the alternate preview N times")
		c.Flags().Bool("commit-alternate", false, "replace the written text with the alternate in preview")
	}
}

type generateOptions struct {
	Content         string
	Refresh         bool
	SlotID          int
	SubIndex        int
	ChatContext     string
	Cycle           int
	CommitAlternate bool
}

func generateOptionsFrom(cmd *cobra.Command) generateOptions {
	slotID, _ := cmd.Flags().GetInt("slot")
	sub, _ := cmd.Flags().GetInt("sub")
	chatContext, _ := cmd.Flags().GetString("context")
	cycle, _ := cmd.Flags().GetInt("cycle")
	commit, _ := cmd.Flags().GetBool("commit-alternate")
	return generateOptions{
		SlotID:          slotID,
		SubIndex:        sub,
		ChatContext:     chatContext,
		Cycle:           cycle,
		CommitAlternate: commit,
	}
}

// generateEnv is what one local generation run needs from the outside.
type generateEnv struct {
	Store       *storage.Store
	Endpoint    string
	Token       string
	Timeout     time.Duration
	MinInterval time.Duration
	FullAccess  bool
}

func runGenerateCommand(ctx context.Context, opts generateOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level, slog.LevelWarn)

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	return runGenerate(ctx, generateEnv{
		Store:       store,
		Endpoint:    cfg.Generator.Endpoint,
		Token:       cfg.Server.APIToken,
		Timeout:     cfg.Generator.Timeout,
		MinInterval: cfg.Generator.MinInterval,
		FullAccess:  cfg.Entitlement.FullAccess,
	}, opts, os.Stdout)
}

// runGenerate drives one generation through the orchestrator into a
// presenter whose target is an in-memory buffer, then writes the buffer to
// w. Candidate listings and advisories go to stderr.
func runGenerate(ctx context.Context, env generateEnv, opts generateOptions, w io.Writer) error {
	content := opts.Content
	if opts.Refresh {
		data, err := env.Store.GetRecord(lastInputKey)
		if errors.Is(err, storage.ErrNotFound) {
			return errors.New("nothing to refresh: run generate first")
		}
		if err != nil {
			return fmt.Errorf("reading previous input: %w", err)
		}
		content = string(data)
	}

	slotStore := slots.NewStore(env.Store)
	slot, ok := slotStore.CurrentSlot()
	if opts.SlotID >= 0 {
		slot, ok = slotStore.Load().Slot(opts.SlotID)
	}
	if !ok {
		return fmt.Errorf("no such slot: %d", opts.SlotID)
	}
	if opts.SubIndex >= 0 && !slot.SelectSubCategory(opts.SubIndex) {
		printWarning("sub-category index %d out of range, keeping %s", opts.SubIndex, slot.SelectedSubCategory.DisplayName())
	}

	id, err := identity.NewManager(env.Store).Get()
	if err != nil {
		return fmt.Errorf("loading identity: %w", err)
	}

	buf := presenter.NewBuffer("")
	pres := presenter.New(buf, candidate.NewArchive(env.Store))
	orch := orchestrator.New(orchestrator.Config{
		Transport:   generator.NewClient(env.Endpoint, env.Timeout).WithToken(env.Token),
		Entitlement: orchestrator.StaticEntitlement(env.FullAccess),
		Fallback:    fallback.Generator{},
		Receiver:    pres,
		Log:         env.Store,
		MinInterval: env.MinInterval,
		Timeout:     env.Timeout,
	})

	printStep("%s · %s", slot.MainCategory.DisplayName(), slot.SelectedSubCategory.DisplayName())
	out := orch.Generate(ctx, orchestrator.Input{
		Slot:        slot,
		Content:     content,
		Identity:    id,
		ChatContext: opts.ChatContext,
	})
	if !out.Delivered() {
		if out.Advisory != "" {
			printWarning("%s", out.Advisory)
		}
		if out.Err != nil {
			return out.Err
		}
		return fmt.Errorf("generation %s", out.Kind)
	}
	if out.Advisory != "" {
		printWarning("%s", out.Advisory)
	}

	if err := env.Store.SetRecord(lastInputKey, []byte(content)); err != nil {
		slog.Warn("saving input for refresh failed", "error", err)
	}

	printSnapshot(os.Stderr, pres.Snapshot())
	for i := 0; i < opts.Cycle; i++ {
		c, err := pres.CycleAlternate()
		if err != nil {
			printWarning("%v", err)
			break
		}
		printStep("alternate: %s", c.Text)
	}
	if opts.CommitAlternate {
		c, err := pres.CommitAlternate()
		if err != nil {
			return err
		}
		printSuccess("replaced with alternate %s", c.ID)
	}

	_, err = fmt.Fprintln(w, buf.String())
	return err
}
