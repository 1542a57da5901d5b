package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hasiru/diagnosis"
	"hasiru/utils"

	"github.com/spf13/cobra"
)

var (
	matchLabels []string
	matchTopN   int

	tokenSubject string
	tokenTTL     time.Duration
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match labels against the condition table without calling any service",
	Long: `Match runs the disease matcher offline on labels given on the command line.

  hasiru match --label "rust=0.8" --label "leaf=0.6"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		labels, err := parseLabels(matchLabels)
		if err != nil {
			return err
		}
		table, err := diagnosis.LoadTable(cfg.Diagnosis.TablePath)
		if err != nil {
			return err
		}
		topN := cfg.Diagnosis.TopN
		if cmd.Flags().Changed("top-n") {
			topN = matchTopN
		}
		r := diagnosis.NewMatcher(table, topN).Match(labels)

		out := json.NewEncoder(cmd.OutOrStdout())
		out.SetIndent("", "  ")
		return out.Encode(struct {
			diagnosis.Result
			Percent int  `json:"percent"`
			IsPlant bool `json:"is_plant"`
		}{r, r.Percent(), diagnosis.IsPlant(labels)})
	},
}

var conditionsCmd = &cobra.Command{
	Use:   "conditions",
	Short: "List the known conditions in match order",
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := diagnosis.LoadTable(cfg.Diagnosis.TablePath)
		if err != nil {
			return err
		}
		for i, c := range table.Conditions() {
			fmt.Fprintf(cmd.OutOrStdout(), "%2d. %-16s %s\n", i+1, c.Name, strings.Join(c.Synonyms, ", "))
		}
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token signed with auth.jwt_secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		tok, err := utils.GenerateJWT(cfg.Auth.JWTSecret, tokenSubject, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	matchCmd.Flags().StringArrayVarP(&matchLabels, "label", "l", nil, `label as "description=score", highest first`)
	matchCmd.Flags().IntVar(&matchTopN, "top-n", diagnosis.DefaultTopN, "labels considered; 0 means all")
	_ = matchCmd.MarkFlagRequired("label")

	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "owner the token authenticates")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 72*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("subject")
}

// parseLabels reads "description=score" pairs; the score may be 0..1 or a percentage.
func parseLabels(raw []string) ([]diagnosis.Label, error) {
	labels := make([]diagnosis.Label, 0, len(raw))
	for _, s := range raw {
		i := strings.LastIndex(s, "=")
		if i <= 0 {
			return nil, fmt.Errorf("label %q: want description=score", s)
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(s[i+1:]), 64)
		if err != nil || score < 0 || score > 100 {
			return nil, fmt.Errorf("label %q: invalid score", s)
		}
		if score > 1 {
			score /= 100
		}
		labels = append(labels, diagnosis.Label{Description: strings.TrimSpace(s[:i]), Score: score})
	}
	return labels, nil
}
