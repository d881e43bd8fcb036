package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/R3E-Network/thrones_api/internal/app/domain/character"
	"github.com/R3E-Network/thrones_api/internal/app/runtime"
	"github.com/R3E-Network/thrones_api/internal/app/services/characters"
	"github.com/R3E-Network/thrones_api/internal/config"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var from string
	var replace bool

	cmd := &cobra.Command{
		Use:   "seed --from <characters.json>",
		Short: "Load characters from a JSON array into the configured store",
		Long: `Load characters from a JSON array into the configured store.

By default each element is validated like a POST /api/characters body and
appended with a freshly assigned id. With --replace the file becomes the
whole collection and its ids are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rootOpts.readConfig()
			if err != nil {
				return err
			}
			return runSeed(cmd, cfg, rootOpts, from, replace)
		},
	}

	cmd.Flags().StringVarP(&from, "from", "f", "", "JSON file holding an array of characters")
	cmd.Flags().BoolVar(&replace, "replace", false, "overwrite the collection instead of appending")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func runSeed(cmd *cobra.Command, cfg *config.Config, rootOpts *RootOptions, from string, replace bool) error {
	out := NewPrinter(cmd.OutOrStdout())

	data, err := os.ReadFile(from)
	if err != nil {
		return err
	}
	root := gjson.ParseBytes(data)
	if !gjson.ValidBytes(data) || !root.IsArray() {
		return fmt.Errorf("%s: expected a JSON array of characters", from)
	}

	ctx := cmd.Context()
	log := rootOpts.logger(cfg)
	store, err := runtime.BuildCharacterStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	if c, ok := store.(io.Closer); ok {
		defer c.Close()
	}

	if replace {
		var records []character.Character
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("%s: %w", from, err)
		}
		if err := validateSeedIDs(records); err != nil {
			return err
		}
		if err := store.PersistCharacters(ctx, records); err != nil {
			return err
		}
		out.Success("replaced collection with %d characters", len(records))
		return nil
	}

	svc := characters.New(store, log)
	elements := root.Array()
	bar := out.NewProgressBar(len(elements), "seeding")
	created := 0
	for i, element := range elements {
		if _, err := svc.Create(ctx, []byte(element.Raw)); err != nil {
			fmt.Fprintln(cmd.OutOrStdout())
			out.Error("element %d: %v", i, err)
			return err
		}
		created++
		bar.Increment()
	}
	bar.Finish()
	out.Success("added %d characters", created)
	return nil
}

func validateSeedIDs(records []character.Character) error {
	seen := make(map[int64]bool, len(records))
	for i, c := range records {
		if c.ID <= 0 {
			return fmt.Errorf("element %d: id must be a positive integer", i)
		}
		if seen[c.ID] {
			return fmt.Errorf("element %d: duplicate id %d", i, c.ID)
		}
		seen[c.ID] = true
	}
	return nil
}
