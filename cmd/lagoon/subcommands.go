package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lagoon-ai/lagoon-go/internal/config"
	"github.com/lagoon-ai/lagoon-go/internal/runlog"
	"github.com/lagoon-ai/lagoon-go/pkg/lagoon"
)

// Resolve config and client from the command's flags
func resolveClient(cmd *cobra.Command) (*lagoon.Client, config.Config, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, config.Config{}, err
	}
	opts := []lagoon.Option{lagoon.WithLogger(log.Logger)}
	if cfg.Token != "" {
		opts = append(opts, lagoon.WithToken(cfg.Token))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, lagoon.WithBaseURL(cfg.BaseURL))
	}
	if d := cfg.PollIntervalDuration(); d > 0 {
		opts = append(opts, lagoon.WithPollInterval(d))
	}
	if cfg.UploadThreshold > 0 {
		opts = append(opts, lagoon.WithUploadThreshold(cfg.UploadThreshold))
	}
	client, err := lagoon.NewClient(opts...)
	if err != nil {
		return nil, config.Config{}, err
	}
	return client, cfg, nil
}

// Open the local run history
func openHistory(cfg config.Config) (*runlog.Store, error) {
	path := cfg.HistoryPath
	if path == "" {
		path = config.DefaultHistoryPath()
	}
	return runlog.Open(path)
}

// Parse repeated --input k=v flags; a value of @path reads the file
func parseInputs(pairs []string) (lagoon.PredictionInput, error) {
	input := lagoon.PredictionInput{}
	for _, pair := range pairs {
		i := strings.IndexByte(pair, '=')
		if i < 0 {
			return nil, fmt.Errorf("invalid --input %q, want key=value", pair)
		}
		key, value := pair[:i], pair[i+1:]
		if strings.HasPrefix(value, "@") {
			f, err := os.Open(strings.TrimPrefix(value, "@"))
			if err != nil {
				return nil, err
			}
			input[key] = f
			continue
		}
		// Numbers and booleans pass through as JSON scalars
		var v interface{}
		if err := json.Unmarshal([]byte(value), &v); err == nil {
			input[key] = v
		} else {
			input[key] = value
		}
	}
	return input, nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func recordRun(ctx context.Context, cfg config.Config, id, model, version, status string) {
	store, err := openHistory(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("run history unavailable")
		return
	}
	defer store.Close()
	if err := store.Record(ctx, runlog.Entry{ID: id, Model: model, Version: version, Status: status}); err != nil {
		log.Warn().Err(err).Msg("record run")
	}
}

// Run a model end to end
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run owner/name:version",
		Short: "Create a prediction and wait for its output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, _ := cmd.Flags().GetStringArray("input")
			webhook, _ := cmd.Flags().GetString("webhook")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			client, cfg, err := resolveClient(cmd)
			if err != nil {
				return err
			}
			input, err := parseInputs(pairs)
			if err != nil {
				return err
			}

			ref, err := lagoon.ParseModelRef(args[0])
			if err != nil {
				return err
			}
			p, err := client.Predictions.Create(cmd.Context(), ref.Version, input, &lagoon.PredictionOptions{Webhook: webhook})
			if err != nil {
				return err
			}
			recordRun(cmd.Context(), cfg, p.ID, ref.Owner+"/"+ref.Name, ref.Version, string(p.Status))

			if err := client.Predictions.Wait(cmd.Context(), p, lagoon.WaitOptions{Timeout: timeout}); err != nil {
				return err
			}
			recordRun(cmd.Context(), cfg, p.ID, ref.Owner+"/"+ref.Name, ref.Version, string(p.Status))
			if p.Status == lagoon.StatusFailed {
				return &lagoon.ModelError{Prediction: p}
			}
			return printJSON(p.Output)
		},
	}
	cmd.Flags().StringArray("input", nil, "input as key=value; use key=@path to send a file")
	cmd.Flags().String("webhook", "", "webhook URL to notify on completion")
	cmd.Flags().Duration("timeout", 10*time.Minute, "give up waiting after this long (the job keeps running)")
	return cmd
}

// Submit without waiting
func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create owner/name:version",
		Short: "Create a prediction and return immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, _ := cmd.Flags().GetStringArray("input")
			webhook, _ := cmd.Flags().GetString("webhook")

			client, cfg, err := resolveClient(cmd)
			if err != nil {
				return err
			}
			input, err := parseInputs(pairs)
			if err != nil {
				return err
			}
			ref, err := lagoon.ParseModelRef(args[0])
			if err != nil {
				return err
			}
			p, err := client.Predictions.Create(cmd.Context(), ref.Version, input, &lagoon.PredictionOptions{Webhook: webhook})
			if err != nil {
				return err
			}
			recordRun(cmd.Context(), cfg, p.ID, ref.Owner+"/"+ref.Name, ref.Version, string(p.Status))
			fmt.Printf("%s\t%s\n", p.ID, p.Status)
			return nil
		},
	}
	cmd.Flags().StringArray("input", nil, "input as key=value; use key=@path to send a file")
	cmd.Flags().String("webhook", "", "webhook URL to notify on completion")
	return cmd
}

// Fetch a prediction
func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get id",
		Short: "Fetch a prediction's current state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wait, _ := cmd.Flags().GetBool("wait")
			client, cfg, err := resolveClient(cmd)
			if err != nil {
				return err
			}
			p, err := client.Predictions.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if wait {
				if err := client.Predictions.Wait(cmd.Context(), p, lagoon.WaitOptions{}); err != nil {
					return err
				}
			}
			recordRun(cmd.Context(), cfg, p.ID, p.Model, p.Version, string(p.Status))
			return printJSON(p)
		},
	}
	cmd.Flags().Bool("wait", false, "block until the prediction is terminal")
	return cmd
}

// Cancel a prediction
func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel id",
		Short: "Request cancellation of a running prediction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := resolveClient(cmd)
			if err != nil {
				return err
			}
			p, err := client.Predictions.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := client.Predictions.Cancel(cmd.Context(), p); err != nil {
				return err
			}
			recordRun(cmd.Context(), cfg, p.ID, p.Model, p.Version, string(p.Status))
			fmt.Printf("cancel requested for %s\n", p.ID)
			return nil
		},
	}
}

// Local run history
func newPsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ps",
		Short: "List predictions submitted from this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			store, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%s\t%s\t%s\t%s\n", e.ID, e.Model, e.Status, e.CreatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

// Remote prediction listing
func newLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List predictions on the platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			client, _, err := resolveClient(cmd)
			if err != nil {
				return err
			}
			var predictions []lagoon.Prediction
			if all {
				predictions, err = lagoon.Paginate(cmd.Context(), client.Predictions.List)
				if err != nil {
					return err
				}
			} else {
				page, err := client.Predictions.List(cmd.Context(), nil)
				if err != nil {
					return err
				}
				predictions = page.Results
			}
			for _, p := range predictions {
				fmt.Printf("%s\t%s\t%s\n", p.ID, p.Status, p.CreatedAt)
			}
			return nil
		},
	}
	cmd.Flags().Bool("all", false, "follow pagination to the end")
	return cmd
}

// Model catalog
func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Browse the model catalog",
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List public models",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := resolveClient(cmd)
			if err != nil {
				return err
			}
			page, err := client.Models.List(cmd.Context(), nil)
			if err != nil {
				return err
			}
			for _, m := range page.Results {
				fmt.Printf("%s/%s\t%s\n", m.Owner, m.Name, m.Description)
			}
			return nil
		},
	}

	get := &cobra.Command{
		Use:   "get owner/name",
		Short: "Show one model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, name, ok := strings.Cut(args[0], "/")
			if !ok {
				return fmt.Errorf("invalid model %q, want owner/name", args[0])
			}
			client, _, err := resolveClient(cmd)
			if err != nil {
				return err
			}
			m, err := client.Models.Get(cmd.Context(), owner, name)
			if err != nil {
				return err
			}
			return printJSON(m)
		},
	}

	versions := &cobra.Command{
		Use:   "versions owner/name",
		Short: "List a model's versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, name, ok := strings.Cut(args[0], "/")
			if !ok {
				return fmt.Errorf("invalid model %q, want owner/name", args[0])
			}
			client, _, err := resolveClient(cmd)
			if err != nil {
				return err
			}
			page, err := client.Models.ListVersions(cmd.Context(), owner, name, nil)
			if err != nil {
				return err
			}
			for _, v := range page.Results {
				fmt.Printf("%s\t%s\n", v.ID, v.CreatedAt)
			}
			return nil
		},
	}

	cmd.AddCommand(ls, get, versions)
	return cmd
}

// Hardware SKUs
func newHardwareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hardware",
		Short: "List available hardware SKUs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := resolveClient(cmd)
			if err != nil {
				return err
			}
			skus, err := client.Hardware.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, h := range skus {
				fmt.Printf("%s\t%s\n", h.SKU, h.Name)
			}
			return nil
		},
	}
}

// Write a starter config
func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			if err := config.WriteSkeleton(cfgPath); err != nil {
				return err
			}
			fmt.Println("config written; put LAGOON_API_TOKEN in the environment or secrets.env")
			return nil
		},
	}
}
