package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"wildfire-viz/model"
	"wildfire-viz/usecase"

	"github.com/spf13/cobra"
)

var bucketGlyphs = [model.NumBuckets]string{"#", "+", "o", ".", " "}

func newDistributionCmd() *cobra.Command {
	var (
		risk string
		seed uint64
		grid bool
	)

	cmd := &cobra.Command{
		Use:   "distribution",
		Short: "Synthesize a risk-density panel",
		Long: `Synthesize the five-bucket risk distribution and the 8x12 density grid for
a risk level. The output is a visualization aid drawn from fixed weight
tables, not a physical model.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := model.RiskLow
			if risk != "" {
				parsed, err := model.ParseRiskLevel(risk)
				if err != nil {
					return err
				}
				level = parsed
			}
			if !cmd.Flags().Changed("seed") {
				seed = uint64(time.Now().UnixNano())
			}

			d := usecase.NewSeededSynthesizer(seed).Synthesize(level)
			if grid {
				return printGrid(cmd.OutOrStdout(), d)
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(d)
		},
	}

	cmd.Flags().StringVar(&risk, "risk", "", "risk level: Low, Medium, High or Extreme (default Low)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed; omit for a fresh draw")
	cmd.Flags().BoolVar(&grid, "grid", false, "print the grid as text instead of JSON")
	return cmd
}

func printGrid(w io.Writer, d model.Distribution) error {
	rows := make([][]string, model.GridRows)
	for i := range rows {
		rows[i] = make([]string, model.GridCols)
	}
	for _, c := range d.Grid {
		rows[c.Row][c.Col] = bucketGlyphs[c.Bucket]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s risk\n", d.RiskLevel)
	for _, bucket := range model.Buckets() {
		fmt.Fprintf(&b, "  %q %-8s %3d%%\n", bucketGlyphs[bucket], bucket, d.Percentages.Get(bucket))
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "  |%s|\n", strings.Join(r, ""))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
