package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicbench/council-cli/internal/model"
	"github.com/civicbench/council-cli/internal/scoring"
)

var (
	scoreCouncil string
	scoreFormat  string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a council on official figures and community signals",
	Long: `Computes the weighted composite score for one council: customer
satisfaction from approved resident ratings, service delivery blending the
official score with resident sentiment, value for rates from per-capita
spending, and responsiveness from issue resolution times. Also reports the
red-flag index, which flags a recent spike in reported issues.`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.StringVar(&scoreCouncil, "council", "", "council id (required)")
	f.StringVar(&scoreFormat, "format", "table", "output format: table or json")
	_ = scoreCmd.MarkFlagRequired("council")
	rootCmd.AddCommand(scoreCmd)
}

// scoreReport bundles the two per-council indices into one output document.
type scoreReport struct {
	Score   *model.CompositeScore `json:"score"`
	RedFlag *model.RedFlagIndex   `json:"red_flag"`
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("engine"); err != nil {
		return err
	}
	if scoreFormat != "table" && scoreFormat != "json" {
		return eris.Errorf("score: unsupported format %q", scoreFormat)
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	engine, err := scoring.NewEngine(st, cfg.Scoring.Weights)
	if err != nil {
		return err
	}

	score, err := engine.Score(ctx, scoreCouncil)
	if err != nil {
		return eris.Wrapf(err, "score: %s", scoreCouncil)
	}
	redFlag, err := engine.RedFlag(ctx, scoreCouncil)
	if err != nil {
		return eris.Wrapf(err, "score: red flag %s", scoreCouncil)
	}

	zap.L().Info("score computed",
		zap.String("council_id", score.CouncilID),
		zap.Float64("overall", score.OverallScore),
		zap.String("confidence", string(score.OverallConfidence)),
		zap.Float64("red_flag", redFlag.Score),
	)

	if scoreFormat == "json" {
		return printJSON(scoreReport{Score: score, RedFlag: redFlag})
	}
	printScoreReport(score, redFlag)
	return nil
}

func printScoreReport(s *model.CompositeScore, rf *model.RedFlagIndex) {
	fmt.Printf("Council:    %s\n", s.CouncilID)
	fmt.Printf("Overall:    %.1f / 100 (%s confidence)\n", s.OverallScore, s.OverallConfidence)
	fmt.Printf("Signals:    %d ratings, %d issues\n\n", s.SampleSizes.Ratings, s.SampleSizes.Issues)

	fmt.Println("Components:")
	printComponent("customer_satisfaction", s.CustomerSatisfaction)
	printComponent("service_delivery", s.ServiceDelivery)
	printComponent("value_for_rates", s.ValueForRates)
	printComponent("responsiveness", s.Responsiveness)

	fmt.Printf("\nRed flag:   %.2f", rf.Score)
	if rf.PreviousCount > 0 || rf.RecentCount > 0 {
		fmt.Printf(" (%d recent issues vs %d before, spike ratio %.2f)",
			rf.RecentCount, rf.PreviousCount, rf.SpikeRatio)
	}
	fmt.Printf(" [%s confidence]\n", rf.Confidence)
}

func printComponent(name string, c model.ComponentScore) {
	fmt.Printf("  %-25s %6.1f  (%s, n=%d)\n", name, c.Score, c.Confidence, c.SampleSize)
}
