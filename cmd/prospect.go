package main

import (
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/prospect"
)

var prospectCmd = &cobra.Command{
	Use:   "prospect",
	Short: "Find leads for a product or service description",
	Long:  "Runs intent extraction, web search, enrichment, scoring and dedupe for one task and prints the response as JSON.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		req, err := requestFromFlags(cmd.Flags())
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, cfg, "prospect")
		if err != nil {
			return err
		}
		defer env.Close()

		resp, err := env.Pipeline.Run(ctx, req)
		if err != nil {
			return eris.Wrap(err, "prospect")
		}

		compact, _ := cmd.Flags().GetBool("compact")
		return writeJSON(os.Stdout, resp, !compact)
	},
}

func init() {
	f := prospectCmd.Flags()
	f.String("text", "", "what you sell and who you sell to (free text)")
	f.String("text-file", "", "read the task text from a file ('-' for stdin)")
	f.String("geo", "", "geo scope: cis, global or custom")
	f.StringSlice("country", nil, "country for custom geo scope (repeatable)")
	f.Int("max-web-requests", 0, "search call budget (default from mode)")
	f.Int("target", 0, "number of leads to return (default 10, max 50)")
	f.String("dedupe-by", "", "dedupe key: url, thread, text_fingerprint or mixed")
	f.String("mode", "", "effort preset: quick, standard or deep")
	f.String("run-mode", "", "new, continue or refresh")
	f.String("prior-run", "", "run ID to continue or refresh from (default latest for the task)")
	f.String("objective", "", "who to find: buyers, competitors or any")
	f.StringSlice("url", nil, "rank these URLs instead of searching (repeatable)")
	f.Bool("compact", false, "print compact JSON")
	rootCmd.AddCommand(prospectCmd)
}

// requestFromFlags builds a pipeline request from command flags. Enum values
// are validated by the pipeline.
func requestFromFlags(f *pflag.FlagSet) (prospect.Request, error) {
	text, _ := f.GetString("text")
	if path, _ := f.GetString("text-file"); path != "" {
		raw, err := readTextFile(path)
		if err != nil {
			return prospect.Request{}, err
		}
		text = raw
	}
	urls, _ := f.GetStringSlice("url")
	if strings.TrimSpace(text) == "" && len(urls) == 0 {
		return prospect.Request{}, eris.New("prospect: --text, --text-file or --url is required")
	}

	geo, _ := f.GetString("geo")
	countries, _ := f.GetStringSlice("country")
	maxCalls, _ := f.GetInt("max-web-requests")
	target, _ := f.GetInt("target")
	dedupeBy, _ := f.GetString("dedupe-by")
	mode, _ := f.GetString("mode")
	runMode, _ := f.GetString("run-mode")
	prior, _ := f.GetString("prior-run")
	objective, _ := f.GetString("objective")

	if len(countries) > 0 && geo == "" {
		geo = string(model.GeoCustom)
	}

	return prospect.Request{
		TaskText: text,
		Options: prospect.Options{
			MaxWebRequests: maxCalls,
			TargetCount:    target,
			GeoScope:       model.GeoScope(geo),
			Countries:      countries,
			DedupeBy:       model.DedupeMode(dedupeBy),
			Mode:           model.Mode(mode),
			RunMode:        model.RunMode(runMode),
			Objective:      model.Objective(objective),
			PriorRunID:     prior,
		},
		ProvidedURLs: urls,
	}, nil
}

func readTextFile(path string) (string, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", eris.Wrapf(err, "prospect: read %s", path)
	}
	return string(raw), nil
}

func writeJSON(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "encode json")
	}
	return nil
}
