package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	rediscache "github.com/intent-api/backend/internal/cache/redis"
	"github.com/intent-api/backend/internal/evaluation"
	"github.com/intent-api/backend/internal/inference"
	"github.com/intent-api/backend/internal/pipeline"
	"github.com/intent-api/backend/internal/storage/backend"
	"github.com/intent-api/backend/pkg/config"
	"github.com/intent-api/backend/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type cli struct {
	configPath string
	asJSON     bool
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "intentctl",
		Short:         "Operate the intent classification service",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			// Logs go to stderr so command output stays machine-readable.
			if err := logger.Init(cfg.Logging.Level, "console", "stderr"); err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&c.asJSON, "json", false, "print JSON instead of text")

	rootCmd.AddCommand(c.checkCmd())
	rootCmd.AddCommand(c.predictCmd())
	rootCmd.AddCommand(c.reportCmd())
	rootCmd.AddCommand(c.evalCmd())
	rootCmd.AddCommand(c.deviceCmd())
	rootCmd.AddCommand(c.cacheFlushCmd())

	return rootCmd
}

func (c *cli) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load every artifact and the model, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pipeline.Build(cmd.Context(), c.cfg, pipeline.Options{})
			if err != nil {
				return err
			}
			defer p.Close()

			out := cmd.OutOrStdout()
			if c.asJSON {
				return writeJSON(out, map[string]any{
					"vocab_size": p.Vocab.Size(),
					"labels":     p.Labels.Labels(),
					"device":     p.Device,
				})
			}
			fmt.Fprintf(out, "Vocabulary: %d tokens (max index %d)\n", p.Vocab.Size(), p.Vocab.MaxID())
			fmt.Fprintf(out, "Labels:     %d\n", p.Labels.Len())
			fmt.Fprintf(out, "Device:     %s\n", p.Device)
			fmt.Fprintln(out, "OK")
			return nil
		},
	}
}

func (c *cli) predictCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "predict [text]",
		Short: "Classify text without recording it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")

			p, err := pipeline.Build(cmd.Context(), c.cfg, pipeline.Options{})
			if err != nil {
				return err
			}
			defer p.Close()

			result, err := p.Engine.Classify(cmd.Context(), text)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if c.asJSON {
				return writeJSON(out, map[string]any{
					"cleaned":          result.Cleaned,
					"lemmas":           result.Lemmas,
					"encoded":          result.Encoded,
					"predicted_intent": result.Intent,
					"confidence_score": result.Confidence,
				})
			}
			fmt.Fprintf(out, "Cleaned:    %q\n", result.Cleaned)
			fmt.Fprintf(out, "Lemmas:     %s\n", strings.Join(result.Lemmas, " "))
			fmt.Fprintf(out, "Encoded:    %v\n", result.Encoded)
			fmt.Fprintf(out, "Intent:     %s\n", result.Intent)
			fmt.Fprintf(out, "Confidence: %.4f\n", result.Confidence)
			return nil
		},
	}
}

func (c *cli) reportCmd() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize recorded feedback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := backend.Open(cmd.Context(), c.cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			evaluator := evaluation.NewEvaluator(store)
			if top > 0 {
				evaluator.SetTopCorrections(top)
			}
			report, err := evaluator.FeedbackReport(cmd.Context())
			if err != nil {
				return err
			}

			if c.asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			fmt.Fprint(cmd.OutOrStdout(), evaluation.GenerateReport(report))
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 0, "number of corrections to list")
	return cmd
}

func (c *cli) evalCmd() *cobra.Command {
	var datasetPath string

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Measure accuracy on a labelled dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dataset, err := evaluation.LoadDataset(datasetPath)
			if err != nil {
				return err
			}

			p, err := pipeline.Build(cmd.Context(), c.cfg, pipeline.Options{})
			if err != nil {
				return err
			}
			defer p.Close()

			report, err := evaluation.RunDatasetEvaluation(cmd.Context(), p.Engine, dataset)
			if err != nil {
				return err
			}

			if c.asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			fmt.Fprint(cmd.OutOrStdout(), evaluation.GenerateDatasetReport(report))
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "JSON file of {text, intent} items")
	cmd.MarkFlagRequired("dataset")
	return cmd
}

func (c *cli) deviceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "device",
		Short: "Show which execution providers the runtime can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if c.cfg.Model.Backend != "onnx" {
				fmt.Fprintf(out, "Backend %s does not run locally\n", c.cfg.Model.Backend)
				return nil
			}

			libPath := c.cfg.Model.ORTLibraryPath
			if libPath == "" {
				libPath = inference.DefaultLibraryPath(c.cfg.Artifacts.ModelPath)
			}
			if err := inference.InitRuntime(libPath); err != nil {
				return fmt.Errorf("failed to load onnx runtime from %s: %w", libPath, err)
			}

			for _, d := range []inference.Device{inference.DeviceCUDA, inference.DeviceCoreML, inference.DeviceCPU} {
				if err := inference.ProbeONNXDevice(d); err != nil {
					fmt.Fprintf(out, "%-7s unavailable (%v)\n", d, err)
					continue
				}
				fmt.Fprintf(out, "%-7s available\n", d)
			}

			selected, err := inference.ResolveDevice(c.cfg.Model.Device, inference.ProbeONNXDevice)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Selected for %q: %s\n", c.cfg.Model.Device, selected)
			return nil
		},
	}
}

func (c *cli) cacheFlushCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "cache-flush",
		Short: "Drop cached predictions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := "prediction"
			if !all {
				p, err := pipeline.Build(cmd.Context(), c.cfg, pipeline.Options{})
				if err != nil {
					return err
				}
				prefix = pipeline.CachePrefix(c.cfg, p.Labels)
				p.Close()
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			client, err := rediscache.NewClient(ctx, rediscache.Options{
				Host:     c.cfg.Redis.Host,
				Port:     c.cfg.Redis.Port,
				Password: c.cfg.Redis.Password,
				DB:       c.cfg.Redis.DB,
				Prefix:   prefix,
			})
			if err != nil {
				return err
			}
			defer client.Close()

			removed, err := client.Invalidate(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached predictions\n", removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "flush entries from every model, not just the configured one")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
