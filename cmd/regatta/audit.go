package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rowstack/regatta/pkg/audit"
	"github.com/rowstack/regatta/pkg/events"
	"github.com/rowstack/regatta/pkg/kafka"
	"github.com/rowstack/regatta/pkg/models"
)

func newAuditCmd() *cobra.Command {
	var kindFlag string
	var publish bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Report missing editions in competition sequences",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			kinds, err := auditKinds(kindFlag)
			if err != nil {
				return err
			}

			checker := audit.NewChecker(a.competitions, a.races, a.logger)

			var found []audit.Gap
			for _, kind := range kinds {
				gaps, err := checker.FindMissingEditions(cmd.Context(), kind)
				if err != nil {
					return err
				}
				for _, gap := range gaps {
					league := "no league"
					if gap.LeagueID != nil {
						league = *gap.LeagueID
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %q (%s): editions jump %d -> %d\n",
						gap.Competition.Kind, gap.Competition.Name, league,
						gap.FromEdition, gap.ToEdition)
				}
				found = append(found, gaps...)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d gaps found\n", len(found))

			if publish && len(found) > 0 {
				producer := kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      a.cfg.KafkaBrokers,
					Topic:        a.cfg.KafkaOutputTopic,
					BatchSize:    a.cfg.KafkaBatchSize,
					BatchTimeout: time.Duration(a.cfg.KafkaBatchTimeout) * time.Millisecond,
					RequiredAcks: a.cfg.KafkaRequiredAcks,
					Compression:  a.cfg.KafkaCompression,
				}, a.logger)
				defer producer.Close()

				if err := events.NewEmitter(producer, a.logger).EditionGaps(cmd.Context(), found); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", "all", "competition kind to audit: trophy, flag or all")
	cmd.Flags().BoolVar(&publish, "publish", false, "emit an event per gap on the output topic")
	return cmd
}

func auditKinds(flag string) ([]models.CompetitionKind, error) {
	switch strings.ToLower(flag) {
	case "trophy":
		return []models.CompetitionKind{models.KindTrophy}, nil
	case "flag":
		return []models.CompetitionKind{models.KindFlag}, nil
	case "all", "":
		return []models.CompetitionKind{models.KindTrophy, models.KindFlag}, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", flag)
	}
}
