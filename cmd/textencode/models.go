package textencode

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/soundprediction/textencode/pkg/embedder"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models [model-id...]",
	Short: "List providers or probe models",
	Long: `Without arguments, list the embedding providers and the configured default.

With model ids, load each model and report its provider and vector size. Loading
a local model downloads it on first use.`,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		for _, p := range embedder.NewResolver(cfg.Embedding).Providers() {
			marker := ""
			if string(p) == cfg.Embedding.DefaultProvider {
				marker = " (default)"
			}
			fmt.Fprintf(out, "%s%s\n", p, marker)
		}
		if len(cfg.Embedding.AllowedModels) > 0 {
			fmt.Fprintf(out, "\nallowed models:\n")
			for _, m := range cfg.Embedding.AllowedModels {
				fmt.Fprintf(out, "  %s\n", m)
			}
		}
		return nil
	}

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL ID\tPROVIDER\tMODEL\tDIMENSIONS")
	for _, id := range args {
		provider, _ := embedder.ParseModelID(id, embedder.ProviderID(cfg.Embedding.DefaultProvider))
		client, err := rt.resolver.Resolve(context.Background(), id)
		if err != nil {
			fmt.Fprintf(tw, "%s\t%s\terror: %v\t-\n", id, provider, err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", id, provider, client.Model(), client.Dimensions())
	}
	return tw.Flush()
}
