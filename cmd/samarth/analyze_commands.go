package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/ayusman/samarth/internal/app"
	"github.com/ayusman/samarth/internal/audio"
	"github.com/ayusman/samarth/internal/capture"
	"github.com/ayusman/samarth/internal/neck"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run an assessment on a recording",
	}
	cmd.PersistentFlags().StringVarP(&subject, "subject", "s", "", "Subject ID to record the assessment under")

	cmd.AddCommand(newAnalyzeFaceCommand(ctx, &subject))
	cmd.AddCommand(newAnalyzeEyesCommand(ctx, &subject))
	cmd.AddCommand(newAnalyzeTremorCommand(ctx, &subject))
	cmd.AddCommand(newAnalyzeNeckCommand(ctx, &subject))
	cmd.AddCommand(newAnalyzeSpeechCommand(ctx, &subject))
	return cmd
}

func newAnalyzeFaceCommand(ctx *commandContext, subject *string) *cobra.Command {
	return &cobra.Command{
		Use:   "face <image>",
		Short: "Score facial symmetry from a still image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := ctx.openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			img, err := capture.ReadImageFile(args[0])
			if err != nil {
				return err
			}
			defer img.Close()

			rep := a.AnalyzeFace(cmd.Context(), *subject, img)
			return report(cmd, ctx.jsonOutput(), rep, rep.Success, rep.Error, func() [][2]string {
				pairs := [][2]string{{"Symmetry score", num(rep.SymmetryScore)}}
				if c := rep.Components; c != nil {
					pairs = append(pairs,
						[2]string{"Eye symmetry", num(c.Eye)},
						[2]string{"Mouth symmetry", num(c.Mouth)},
						[2]string{"Jaw symmetry", num(c.Jaw)},
						[2]string{"Eyebrow symmetry", num(c.Eyebrow)},
					)
				}
				if ind := rep.Indicators; ind != nil {
					pairs = append(pairs, [2]string{"Overall risk", ind.Overall.Risk})
				}
				return withID(pairs, rep.AssessmentID)
			})
		},
	}
}

func newAnalyzeEyesCommand(ctx *commandContext, subject *string) *cobra.Command {
	var phase, sessionID string

	cmd := &cobra.Command{
		Use:   "eyes <video>",
		Short: "Analyze eye movement in a recorded task phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := ctx.openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			clip, err := a.OpenClip(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer clip.Close()

			rep, err := a.AnalyzeEyes(cmd.Context(), *subject, sessionID, phase, clip)
			if err != nil {
				return err
			}
			return report(cmd, ctx.jsonOutput(), rep, rep.Success, rep.Error, func() [][2]string {
				pairs := [][2]string{{"Phase", rep.Phase}}
				if s := rep.Summary; s != nil {
					pairs = append(pairs,
						[2]string{"Frames", strconv.Itoa(s.FrameCount)},
						[2]string{"Saccades", strconv.Itoa(s.SaccadeCount)},
						[2]string{"Fixations", strconv.Itoa(s.FixationCount)},
						[2]string{"Blinks", strconv.Itoa(s.BlinkCount)},
						[2]string{"Smoothness", num(s.MovementSmoothness)},
						[2]string{"Data valid", yesNo(s.DataQuality.Valid)},
					)
				}
				if ind := rep.Indicators; ind != nil {
					pairs = append(pairs,
						[2]string{"Saccadic dysfunction", yesNo(ind.SaccadicDysfunction)},
						[2]string{"Pursuit impairment", yesNo(ind.PursuitImpairment)},
						[2]string{"Nystagmus", yesNo(ind.NystagmusDetected)},
					)
				}
				if o := rep.Overall; o != nil {
					pairs = append(pairs, [2]string{"Composite score", num(o.CompositeScore)})
				}
				return withID(pairs, rep.AssessmentID)
			})
		},
	}
	cmd.Flags().StringVar(&phase, "phase", "", "Task phase: calibration, saccadic_test, pursuit_test or fixation_test")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID that accumulates phases into one composite")
	return cmd
}

func newAnalyzeTremorCommand(ctx *commandContext, subject *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tremor <video>",
		Short: "Measure hand tremor in a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := ctx.openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			clip, err := a.OpenClip(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer clip.Close()

			rep := a.AnalyzeTremor(cmd.Context(), *subject, clip)
			return report(cmd, ctx.jsonOutput(), rep, rep.Success, rep.Error, func() [][2]string {
				m := rep.Metrics
				return withID([][2]string{
					{"Frequency (Hz)", num(m.Frequency)},
					{"Amplitude", num(m.Amplitude)},
					{"Type", m.Type},
					{"Severity", m.Severity},
					{"Confidence", num(m.Confidence)},
					{"Score", num(m.Score)},
					{"Frames", strconv.Itoa(m.FrameCount)},
				}, rep.AssessmentID)
			})
		},
	}
}

func newAnalyzeNeckCommand(ctx *commandContext, subject *string) *cobra.Command {
	var neutral, flexion, extension string
	var rotations []string

	cmd := &cobra.Command{
		Use:   "neck",
		Short: "Assess neck range of motion from posed images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if neutral == "" {
				return fmt.Errorf("--neutral is required")
			}
			a, _, err := ctx.openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			sessionID := "cli-" + uuid.NewString()

			step := func(path string, run func(img *gocv.Mat) (app.NeckReport, error)) error {
				img, err := capture.ReadImageFile(path)
				if err != nil {
					return err
				}
				defer img.Close()
				rep, err := run(img)
				if err != nil {
					return err
				}
				if !rep.Success {
					return fmt.Errorf("%s: %s", path, rep.Error)
				}
				return nil
			}

			if err := step(neutral, func(img *gocv.Mat) (app.NeckReport, error) {
				return a.SetNeckNeutral(cmd.Context(), sessionID, img)
			}); err != nil {
				return err
			}
			measures := []struct {
				kind  neck.Kind
				paths []string
			}{
				{neck.Flexion, nonEmpty(flexion)},
				{neck.Extension, nonEmpty(extension)},
				{neck.Rotation, rotations},
			}
			for _, m := range measures {
				for _, path := range m.paths {
					if err := step(path, func(img *gocv.Mat) (app.NeckReport, error) {
						return a.MeasureNeck(cmd.Context(), sessionID, m.kind, img)
					}); err != nil {
						return err
					}
				}
			}

			rep, err := a.NeckResults(cmd.Context(), *subject, sessionID)
			if err != nil {
				return err
			}
			return report(cmd, ctx.jsonOutput(), rep, rep.Success, rep.Error, func() [][2]string {
				m := rep.Metrics
				return withID([][2]string{
					{"Flexion (deg)", num(m.FlexionDegrees)},
					{"Extension (deg)", num(m.ExtensionDegrees)},
					{"Left rotation (deg)", num(m.LeftRotationDegrees)},
					{"Right rotation (deg)", num(m.RightRotationDegrees)},
					{"Mobility score", num(m.MobilityScore)},
					{"Symmetry score", num(m.SymmetryScore)},
				}, rep.AssessmentID)
			})
		},
	}
	cmd.Flags().StringVar(&neutral, "neutral", "", "Image of the upright neutral posture")
	cmd.Flags().StringVar(&flexion, "flexion", "", "Image at maximum flexion")
	cmd.Flags().StringVar(&extension, "extension", "", "Image at maximum extension")
	cmd.Flags().StringSliceVar(&rotations, "rotation", nil, "Images at maximum rotation; repeat for left and right")
	return cmd
}

func newAnalyzeSpeechCommand(ctx *commandContext, subject *string) *cobra.Command {
	return &cobra.Command{
		Use:   "speech <wav>",
		Short: "Analyze speech patterns in a WAV recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := ctx.openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			clip, err := audio.DecodeFile(args[0])
			if err != nil {
				return err
			}

			rep := a.AnalyzeSpeech(cmd.Context(), *subject, clip)
			return report(cmd, ctx.jsonOutput(), rep, rep.Success, rep.Error, func() [][2]string {
				m := rep.Metrics
				pairs := [][2]string{
					{"Duration (s)", num(rep.Duration)},
					{"Overall score", num(m.OverallScore)},
					{"Clarity", num(m.Clarity)},
					{"Speech rate (wpm)", num(m.SpeechRate)},
					{"Pitch stability", num(m.PitchStability)},
					{"Articulation", num(m.ArticulationScore)},
				}
				if ind := rep.Indicators; ind != nil && len(ind.Flagged) > 0 {
					pairs = append(pairs, [2]string{"Flagged", strings.Join(ind.Flagged, ", ")})
				}
				return withID(pairs, rep.AssessmentID)
			})
		},
	}
}

func withID(pairs [][2]string, id string) [][2]string {
	if id == "" {
		return pairs
	}
	return append(pairs, [2]string{"Assessment", id})
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
