package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/forlove/internal/candidate"
	"github.com/kalambet/forlove/internal/config"
	"github.com/kalambet/forlove/internal/identity"
	"github.com/kalambet/forlove/internal/slots"
)

type slotsView struct {
	Configuration slots.UserSlotConfiguration `json:"configuration"`
	ActiveIndex   int                         `json:"activeIndex"`
}

// --- slots ---

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Show and configure the category slots",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/slots")
		if err != nil {
			return err
		}
		var view slotsView
		if err := decodeJSON(resp, &view); err != nil {
			return err
		}
		printSlots(view)
		return nil
	},
}

var slotsActivateCmd = &cobra.Command{
	Use:   "activate <id>...",
	Short: "Choose up to three active slots, in order",
	Args:  cobra.RangeArgs(1, slots.MaxActiveSlots),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseSlotIDs(args)
		if err != nil {
			return err
		}
		if err := slots.CheckActiveIDs(ids); err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.put(cmd.Context(), "/slots/active", map[string]any{"ids": ids})
		if err != nil {
			return err
		}
		var view slotsView
		if err := decodeJSON(resp, &view); err != nil {
			return err
		}
		printSlots(view)
		return nil
	},
}

var slotsSelectCmd = &cobra.Command{
	Use:   "select <slot-id> <sub-index>",
	Short: "Select a slot's sub-category by index",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid slot id %q", args[0])
		}
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid sub-category index %q", args[1])
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.put(cmd.Context(), fmt.Sprintf("/slots/%d/sub/%d", id, index), nil)
		if err != nil {
			return err
		}
		var view slotsView
		if err := decodeJSON(resp, &view); err != nil {
			return err
		}
		slot, _ := view.Configuration.Slot(id)
		if slot.SelectedSubIndex != index {
			printWarning("index %d is out of range for %s, selection unchanged", index, slot.MainCategory.DisplayName())
			return nil
		}
		printSuccess("%s → %s", slot.MainCategory.DisplayName(), slot.SelectedSubCategory.DisplayName())
		return nil
	},
}

var slotsUseCmd = &cobra.Command{
	Use:   "use <position>",
	Short: "Move the cursor to an active slot position (0-based)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid position %q", args[0])
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.put(cmd.Context(), "/slots/cursor", map[string]int{"index": index})
		if err != nil {
			return err
		}
		var view slotsView
		if err := decodeJSON(resp, &view); err != nil {
			return err
		}
		printSlots(view)
		return nil
	},
}

var slotsConfigCmd = &cobra.Command{
	Use:   "config <slot-id>",
	Short: "Tune a slot's word count, aggression, adult style and style overrides",
	Long: `Tune a slot. Only the flags given are changed.

Examples:
  forlove slots config 0 --word-count few --aggression high
  forlove slots config 2 --ambiguity 4 --emoji high --length long
  forlove slots config 2 --reset-style`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid slot id %q", args[0])
		}
		patch := slotPatchFromFlags(cmd)
		if len(patch) == 0 {
			return fmt.Errorf("nothing to change: pass at least one flag")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.patch(cmd.Context(), fmt.Sprintf("/slots/%d/config", id), patch)
		if err != nil {
			return err
		}
		var view slotsView
		if err := decodeJSON(resp, &view); err != nil {
			return err
		}
		printSlots(view)
		return nil
	},
}

func init() {
	f := slotsConfigCmd.Flags()
	f.String("word-count", "", "few, medium or many")
	f.String("aggression", "", "low, medium or high")
	f.String("adult", "", "none, light or heavy")
	f.Int("ambiguity", -1, "custom ambiguity 0-5")
	f.String("emoji", "", "custom emoji density: none, low, medium or high")
	f.String("length", "", "custom length: short, medium or long")
	f.Bool("reset-style", false, "drop custom style overrides")
	f.Bool("enable", false, "enable the slot")
	f.Bool("disable", false, "disable the slot")

	slotsCmd.AddCommand(slotsActivateCmd)
	slotsCmd.AddCommand(slotsSelectCmd)
	slotsCmd.AddCommand(slotsUseCmd)
	slotsCmd.AddCommand(slotsConfigCmd)
}

// slotPatchFromFlags builds the PATCH body from the flags the user set.
// Custom style flags are sent together; unset ones keep the server default.
func slotPatchFromFlags(cmd *cobra.Command) map[string]any {
	f := cmd.Flags()
	patch := make(map[string]any)
	for flag, field := range map[string]string{"word-count": "wordCount", "aggression": "aggressionLevel", "adult": "adultStyle"} {
		if v, _ := f.GetString(flag); v != "" {
			patch[field] = v
		}
	}

	style := make(map[string]any)
	if v, _ := f.GetInt("ambiguity"); v >= 0 {
		style["ambiguity"] = v
	}
	if v, _ := f.GetString("emoji"); v != "" {
		style["emojiDensity"] = v
	}
	if v, _ := f.GetString("length"); v != "" {
		style["length"] = v
	}
	if len(style) > 0 {
		patch["customStyleParams"] = style
	}
	if v, _ := f.GetBool("reset-style"); v {
		patch["resetStyleParams"] = true
	}
	if v, _ := f.GetBool("enable"); v {
		patch["isEnabled"] = true
	}
	if v, _ := f.GetBool("disable"); v {
		patch["isEnabled"] = false
	}
	return patch
}

func parseSlotIDs(args []string) ([]int, error) {
	ids := make([]int, len(args))
	for i, a := range args {
		id, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid slot id %q", a)
		}
		ids[i] = id
	}
	return ids, nil
}

func printSlots(view slotsView) {
	active := make(map[int]int)
	for pos, id := range view.Configuration.ActiveSlotIDs {
		active[id] = pos
	}
	for _, s := range view.Configuration.AllSlots {
		mark := "  "
		if pos, ok := active[s.ID]; ok {
			mark = fmt.Sprintf("%d ", pos)
			if pos == view.ActiveIndex {
				mark = colorize(colorGreen, "▶ ")
			}
		}
		style := s.EffectiveStyleParams()
		fmt.Printf("%s%d %s  %s  [字数 %s · 尺度 %s · 成人 %s · 暧昧 %d]\n",
			mark, s.ID,
			colorize(colorBold, s.MainCategory.DisplayName()),
			s.SelectedSubCategory.DisplayName(),
			s.ConfigV2.WordCount.Value(), s.ConfigV2.AggressionLevel.Value(), s.ConfigV2.AdultStyle.Value(),
			style.Ambiguity,
		)
	}
}

// --- identity ---

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Manage the identity profile used in prompts",
}

var identityShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the identity profile as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/identity")
		if err != nil {
			return err
		}
		var id identity.UserIdentity
		if err := decodeJSON(resp, &id); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(id); err != nil {
			return err
		}
		printStatus("Persona", "%s", id.PersonaDescription())
		printStatus("Taboo", "%s", id.TabooDescription())
		return nil
	},
}

var identitySetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set an identity field",
	Long: "Set an identity field. Keys:\n  " + strings.Join(identity.Keys(), "\n  ") + `

Enum fields accept the token or the display value, e.g. female or 女.
The taboo list takes a JSON array or a comma separated list.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.patch(cmd.Context(), "/identity", map[string]string{key: value})
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	identityCmd.AddCommand(identityShowCmd)
	identityCmd.AddCommand(identitySetCmd)
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently committed candidates",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), fmt.Sprintf("/history?limit=%d", limit))
		if err != nil {
			return err
		}
		var result struct {
			Items []candidate.Candidate `json:"items"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Items) == 0 {
			fmt.Println("No history yet.")
			return nil
		}
		for _, c := range result.Items {
			fmt.Printf("%s  %s%s\n",
				colorize(colorCyan, c.CreatedAt.Format("01-02 15:04")),
				c.Text,
				riskSuffix(c),
			)
		}
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the candidate history",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/history")
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}
		printSuccess("History cleared")
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of entries to list")
	historyCmd.AddCommand(historyClearCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Keys:\n  " + strings.Join(config.ValidKeys(), "\n  "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret <key> <value>",
	Short: "Store a secret in the data directory",
	Long:  "Store a secret in the data directory (mode 0600). Keys:\n  " + strings.Join(config.SecretKeys(), "\n  "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := config.SetSecret(cfg.Storage.DataDir, key, value); err != nil {
			return err
		}

		printSuccess("Stored %s", key)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetSecretCmd)
}
