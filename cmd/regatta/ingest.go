package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rowstack/regatta/pkg/decision"
	"github.com/rowstack/regatta/pkg/models"
)

func terminalChannel() decision.Channel {
	return decision.NewTerminal(os.Stdin, os.Stdout)
}

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file.json> [file.json...]",
		Short: "Ingest scraped race files into the canonical store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			runner := a.runner(a.channel())

			for _, path := range args {
				races, err := readScrapedRaces(path)
				if err != nil {
					return err
				}
				if err := runner.ProcessAll(cmd.Context(), races); err != nil {
					return err
				}
			}

			if ignored := runner.Ignored(); len(ignored) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "skipped source refs: %v\n", ignored)
			}
			return nil
		},
	}
	return cmd
}

// readScrapedRaces accepts either a JSON array of scraped races or a single
// scraped race object.
func readScrapedRaces(path string) ([]models.ScrapedRace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var races []models.ScrapedRace
	if err := json.Unmarshal(data, &races); err == nil {
		return races, nil
	}

	var race models.ScrapedRace
	if err := json.Unmarshal(data, &race); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return []models.ScrapedRace{race}, nil
}
