package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yanqian/askcache/internal/domain/qacache"
)

func newInspectCmd() *cobra.Command {
	var against string
	cmd := &cobra.Command{
		Use:   "inspect QUESTION",
		Short: "Show how a question is normalized, classified and scored",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			out := cmd.OutOrStdout()

			normalized := qacache.NormalizeQuestion(question)
			terms := slices.Sorted(maps.Keys(qacache.TermSet(qacache.KeyTerms(question))))
			fmt.Fprintf(out, "normalized:     %q\n", normalized)
			fmt.Fprintf(out, "time_sensitive: %t\n", qacache.IsTimeSensitive(question))
			fmt.Fprintf(out, "key_terms:      %s\n", strings.Join(terms, ", "))

			if against == "" {
				return nil
			}
			other := qacache.NormalizeQuestion(against)
			fmt.Fprintf(out, "against:        %q\n", other)
			fmt.Fprintf(out, "trigram:        %.3f\n", qacache.TrigramScore(normalized, other))
			fmt.Fprintf(out, "term_overlap:   %.3f\n", qacache.TermOverlap(question, against))
			return nil
		},
	}
	cmd.Flags().StringVar(&against, "against", "", "second question to score against")
	return cmd
}
