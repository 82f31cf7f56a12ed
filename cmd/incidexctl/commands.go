package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/incidex"
)

func (c *cli) rankCmd() *cobra.Command {
	var opts incidex.RankOptions
	var sortBy string

	cmd := &cobra.Command{
		Use:   "rank <product-id>",
		Short: "List catalog incidents most similar to a product",
		Long: `Rank catalog incidents by lexical and technology-tag similarity to a product.

Examples:
  incidexctl --dataset catalog.yaml rank 1
  incidexctl --dataset catalog.yaml rank 1 --sort relevance --domain Privacy --min-risk 0.4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseID("product", args[0])
			if err != nil {
				return err
			}
			out, err := c.printer(cmd)
			if err != nil {
				return err
			}
			opts.SortBy = incidex.SortKey(sortBy)
			return c.withEngine(cmd, func(ctx context.Context, e *incidex.Engine) error {
				items, err := e.Rank(ctx, productID, opts)
				if err != nil {
					return err //nolint:wrapcheck // library errors are already prefixed
				}
				return out.ranking(items)
			})
		},
	}
	f := cmd.Flags()
	f.IntVarP(&opts.Limit, "limit", "n", 0, "Maximum incidents to return (default 5, max 100)")
	f.StringVar(&sortBy, "sort", "", "Sort key: similarity, risk or relevance")
	f.StringVar(&opts.RiskDomain, "domain", "", "Only incidents in this risk domain")
	f.Float64Var(&opts.MinSimilarity, "min-similarity", 0, "Minimum combined similarity")
	f.Float64Var(&opts.MinRisk, "min-risk", 0, "Minimum incident risk")
	return cmd
}

func (c *cli) scoreCmd() *cobra.Command {
	var mode, scale string

	cmd := &cobra.Command{
		Use:   "score <product-id> <incident-id>...",
		Short: "Score how an incident transfers to a product",
		Long: `Ask the oracle to score incidents for a product. With several incident IDs the
incidents are scored concurrently and printed in input order. Without an oracle
key every assessment is a fallback.

Examples:
  incidexctl --dataset catalog.yaml --openai-key $KEY score 1 7
  incidexctl --dataset catalog.yaml --openai-key $KEY score 1 7 8 9 --scale percent`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseID("product", args[0])
			if err != nil {
				return err
			}
			incidentIDs := make([]int64, 0, len(args)-1)
			for _, a := range args[1:] {
				id, err := parseID("incident", a)
				if err != nil {
					return err
				}
				incidentIDs = append(incidentIDs, id)
			}
			out, err := c.printer(cmd)
			if err != nil {
				return err
			}
			opts := incidex.ScoreOptions{Mode: incidex.Mode(mode), Scale: incidex.Scale(scale)}

			return c.withEngine(cmd, func(ctx context.Context, e *incidex.Engine) error {
				if len(incidentIDs) == 1 {
					a, err := e.Score(ctx, productID, incidentIDs[0], opts)
					if err != nil {
						return err //nolint:wrapcheck // library errors are already prefixed
					}
					return out.assessment(&a)
				}
				items, err := e.ScoreBulk(ctx, productID, incidentIDs, opts)
				if err != nil {
					return err //nolint:wrapcheck // library errors are already prefixed
				}
				return out.assessments(items)
			})
		},
	}
	addScoreFlags(cmd, &mode, &scale)
	return cmd
}

func (c *cli) topCmd() *cobra.Command {
	var mode, scale string
	var limit int

	cmd := &cobra.Command{
		Use:   "top <product-id>",
		Short: "Score the first catalog incidents and list the most transferable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseID("product", args[0])
			if err != nil {
				return err
			}
			out, err := c.printer(cmd)
			if err != nil {
				return err
			}
			opts := incidex.ScoreOptions{Mode: incidex.Mode(mode), Scale: incidex.Scale(scale)}
			return c.withEngine(cmd, func(ctx context.Context, e *incidex.Engine) error {
				items, err := e.Top(ctx, productID, limit, opts)
				if err != nil {
					return err //nolint:wrapcheck // library errors are already prefixed
				}
				return out.assessments(items)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of incidents to score (max 100)")
	addScoreFlags(cmd, &mode, &scale)
	return cmd
}

func (c *cli) explainCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "explain <product-id> <incident-id>",
		Short: "Explain why an incident matters for a product",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseID("product", args[0])
			if err != nil {
				return err
			}
			incidentID, err := parseID("incident", args[1])
			if err != nil {
				return err
			}
			out, err := c.printer(cmd)
			if err != nil {
				return err
			}
			return c.withEngine(cmd, func(ctx context.Context, e *incidex.Engine) error {
				text, err := e.Explain(ctx, productID, incidentID, incidex.ExplainMode(mode))
				if err != nil {
					return err //nolint:wrapcheck // library errors are already prefixed
				}
				return out.text(text)
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(incidex.ExplainGeneric), "Explanation depth: none, generic or full_prism")
	return cmd
}

var errUnhealthy = errors.New("catalog unreachable")

func (c *cli) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the catalog and oracle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.printer(cmd)
			if err != nil {
				return err
			}
			return c.withEngine(cmd, func(ctx context.Context, e *incidex.Engine) error {
				h := e.Health(ctx)
				if err := out.health(h); err != nil {
					return err
				}
				if h.Status == "error" {
					return errUnhealthy
				}
				return nil
			})
		},
	}
}

func addScoreFlags(cmd *cobra.Command, mode, scale *string) {
	cmd.Flags().StringVar(mode, "mode", string(incidex.ModePrism), "Scoring mode: prism or generic")
	cmd.Flags().StringVar(scale, "scale", string(incidex.ScaleFivePoint), "Score scale: five_point or percent")
}

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q: must be a positive integer", kind, s)
	}
	return id, nil
}
