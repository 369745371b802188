package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/calque-ai/reviewchat/pkg/config"
	"github.com/calque-ai/reviewchat/pkg/logger"
	"github.com/calque-ai/reviewchat/pkg/reqctx"
)

// cli holds the global flags and the app built from them. The app is built
// once, in the root's persistent pre-run, for every command that needs it.
type cli struct {
	configPath string
	envFile    string
	seed       string

	app *app
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reviewchat",
		Short: "Answer questions about products from their reviews",
		Long: `reviewchat indexes product descriptions and reviews into a vector store and
answers questions about a product with a text generator grounded on the most
similar documents.

Example usage:
  reviewchat index -f products.json
  reviewchat ask -p p1 -q "How is the battery life?"
  reviewchat summary -p p1`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "reviewchat.yaml", "path to the YAML config file")
	flags.StringVar(&c.envFile, "env", ".env", "path to an optional .env file")
	flags.StringVar(&c.seed, "seed", "", "products file to index before running the command")

	root.AddCommand(
		c.indexCmd(),
		c.askCmd(),
		c.chatCmd(),
		c.summaryCmd(),
		c.dropCmd(),
		c.serveCmd(),
		versionCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnv(c.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}

	ctx := reqctx.EnsureRequestID(cmd.Context())
	cmd.SetContext(ctx)

	c.app, err = newApp(ctx, cfg)
	if err != nil {
		return err
	}
	if c.seed != "" {
		return c.app.indexFile(ctx, c.seed, io.Discard)
	}
	return nil
}

func productFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "product", "p", "", "product id (required)")
	_ = cmd.MarkFlagRequired("product")
}

func (c *cli) indexCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index every product of a products file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.indexFile(cmd.Context(), file, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "sample_products.json", "products file")
	return cmd
}

func (c *cli) askCmd() *cobra.Command {
	var productID, question string
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question about a product",
		Long: `Answers a single question without conversation history. The question is
taken from -q or, when that is empty, from the remaining arguments.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if question == "" {
				question = strings.Join(args, " ")
			}
			if strings.TrimSpace(question) == "" {
				return errors.New("a question is required")
			}

			reply := c.app.assistant.Answer(cmd.Context(), productID, question, nil)
			fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
			return reply.Err
		},
	}
	productFlag(cmd, &productID)
	cmd.Flags().StringVarP(&question, "question", "q", "", "question to answer")
	return cmd
}

func (c *cli) chatCmd() *cobra.Command {
	var productID, session string
	var reset bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat about a product, one question per line of stdin",
		Long: `Reads questions from stdin and answers each one with the session history.
History is kept in the configured cache, so it survives restarts with the
badger backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if reset {
				if err := c.app.conversations.Clear(session); err != nil {
					return err
				}
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			fmt.Fprint(out, "> ")
			for scanner.Scan() {
				question := strings.TrimSpace(scanner.Text())
				if question == "" {
					fmt.Fprint(out, "> ")
					continue
				}

				reply := c.app.assistant.Chat(ctx, session, productID, question)
				fmt.Fprintf(out, "%s\n> ", reply.Text)
				if ctx.Err() != nil {
					break
				}
			}
			fmt.Fprintln(out)
			return scanner.Err()
		},
	}
	productFlag(cmd, &productID)
	cmd.Flags().StringVar(&session, "session", "cli", "session id")
	cmd.Flags().BoolVar(&reset, "reset", false, "clear the session history first")
	return cmd
}

func (c *cli) summaryCmd() *cobra.Command {
	var productID string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarise the reviews of a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reply := c.app.assistant.Summarize(cmd.Context(), productID)
			fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
			return reply.Err
		},
	}
	productFlag(cmd, &productID)
	return cmd
}

func (c *cli) dropCmd() *cobra.Command {
	var productID string
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Delete the indexed documents of a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.svc.DropCollection(cmd.Context(), productID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dropped %s\n", productID)
			return nil
		},
	}
	productFlag(cmd, &productID)
	return cmd
}

func (c *cli) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /metrics and /healthz until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			listen := addr
			if listen == "" {
				listen = c.app.cfg.Observability.MetricsAddr
			}
			if listen == "" {
				listen = ":9090"
			}
			return c.app.serve(cmd, listen)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default observability.metrics_addr or :9090)")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		// no app is needed to print the version
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("reviewchat version %s\n", version)
		},
	}
}

func (a *app) indexFile(ctx context.Context, path string, out io.Writer) error {
	products, err := loadProducts(path)
	if err != nil {
		return err
	}

	var failed int
	for _, p := range products {
		report := a.svc.Index(ctx, p.ProductID, p.Description, p.Reviews)
		if !report.OK() {
			failed++
			fmt.Fprintf(out, "FAIL %s (%s): %v\n", p.ProductID, p.Name, report.Err)
			continue
		}
		fmt.Fprintf(out, "ok   %s (%s): %d documents, %d pruned\n", p.ProductID, p.Name, report.DocumentsWritten, report.Pruned)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d products failed to index", failed, len(products))
	}
	return nil
}

func (a *app) serve(cmd *cobra.Command, listen string) error {
	ctx := cmd.Context()

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", a.metrics.Handler())
	mux.Handle("GET /healthz", a.health.Handler())

	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	a.log.Info(ctx, "serving metrics and health", logger.Attr("addr", listen))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
