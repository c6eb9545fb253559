package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ayusman/samarth/internal/app"
	"github.com/ayusman/samarth/internal/store"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var subject, kind string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored assessments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := store.ParseKind(kind)
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			list, err := st.Assessments().List(cmd.Context(), store.Filter{SubjectID: subject, Kind: k, Limit: limit})
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, list)
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No assessments recorded")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, as := range list {
				rows = append(rows, []string{
					as.ID,
					as.SubjectID,
					string(as.Kind),
					num(as.Score),
					yesNo(as.Baseline),
					as.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Subject", "Kind", "Score", "Baseline", "Recorded"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Only this subject")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Only this kind (face, eyes, tremor, neck, speech)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of rows (default 50)")

	cmd.AddCommand(newHistoryShowCommand(ctx))
	cmd.AddCommand(newHistoryCompareCommand(ctx))
	cmd.AddCommand(newHistoryBaselineCommand(ctx))
	cmd.AddCommand(newHistoryDeleteCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one stored assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			as, err := st.Assessments().Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("assessment %s: %w", args[0], err)
			}
			return writeJSON(cmd, as)
		},
	}
}

func newHistoryCompareCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <id>",
		Short: "Compare an assessment with its subject's baseline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			cfg, _ := ctx.ensureConfig()
			a := app.New(app.Options{Config: *cfg, Store: st})
			c, err := a.Compare(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("compare %s: %w", args[0], err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, c)
			}
			pairs := [][2]string{
				{"Kind", string(c.Assessment.Kind)},
				{"Score", num(c.Assessment.Score)},
			}
			if c.Baseline != nil {
				pairs = append(pairs,
					[2]string{"Baseline", c.Baseline.ID},
					[2]string{"Baseline score", num(c.Baseline.Score)},
					[2]string{"Change", strconv.FormatFloat(c.Change, 'f', 2, 64)},
				)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderPairs(pairs))
			return nil
		},
	}
}

func newHistoryBaselineCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "baseline <id>",
		Short: "Mark an assessment as its subject's baseline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			if err := st.Assessments().SetBaseline(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("set baseline: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Baseline set to %s\n", args[0])
			return nil
		},
	}
}

func newHistoryDeleteCommand(ctx *commandContext) *cobra.Command {
	var subject bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an assessment, or with --subject every assessment of a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			repo := st.Assessments()
			if subject {
				err = repo.DeleteSubject(cmd.Context(), args[0])
			} else {
				err = repo.Delete(cmd.Context(), args[0])
			}
			if err != nil {
				return fmt.Errorf("delete %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&subject, "subject", false, "Treat the argument as a subject ID")
	return cmd
}
