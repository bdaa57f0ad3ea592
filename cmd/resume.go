package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/goal-tracker/internal/logger"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume tools",
}

var resumeScoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a resume against a job description with Gemini",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
		if err != nil {
			return fmt.Errorf("creating a logger: %w", err)
		}
		defer func() { _ = log.Sync() }()

		config, err := getConfig(viper.GetViper())
		if err != nil {
			return fmt.Errorf("getting a config: %w", err)
		}

		resumePath, _ := cmd.Flags().GetString("resume")
		jobPath, _ := cmd.Flags().GetString("job")

		resume, err := os.ReadFile(resumePath)
		if err != nil {
			return fmt.Errorf("reading resume: %w", err)
		}
		job, err := os.ReadFile(jobPath)
		if err != nil {
			return fmt.Errorf("reading job description: %w", err)
		}

		scorer, err := newScorer(ctx, config.AI, log)
		if err != nil {
			return fmt.Errorf("building resume scorer: %w", err)
		}
		if scorer == nil {
			return errors.New("gemini api key is not configured (set ai.gemini.api-key-file or GEMINI_API_KEY)")
		}

		score, err := scorer.Score(ctx, string(resume), string(job))
		if err != nil {
			return err
		}

		log.Info("resume scored", zap.Float64("overall", score.Overall), zap.Int("sections", len(score.Sections)))
		return printJSON(cmd.OutOrStdout(), score)
	},
}

func init() {
	resumeScoreCmd.Flags().String("resume", "", "path to the resume text")
	resumeScoreCmd.Flags().String("job", "", "path to the job description text")
	_ = resumeScoreCmd.MarkFlagRequired("resume")
	_ = resumeScoreCmd.MarkFlagRequired("job")

	resumeCmd.AddCommand(resumeScoreCmd)
	rootCmd.AddCommand(resumeCmd)
}
