package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/iamtutumo/agentkb"
	"github.com/iamtutumo/agentkb/crawl"
	"github.com/iamtutumo/agentkb/extract"
	"github.com/iamtutumo/agentkb/fs"
	"github.com/iamtutumo/agentkb/gemini"
	"github.com/iamtutumo/agentkb/goquery"
	"github.com/iamtutumo/agentkb/htmltomarkdown"
	kbhttp "github.com/iamtutumo/agentkb/http"
	"github.com/iamtutumo/agentkb/openai"
	kbslog "github.com/iamtutumo/agentkb/slog"
	"github.com/iamtutumo/agentkb/sqlite"
	"github.com/iamtutumo/agentkb/synth"
	"github.com/iamtutumo/agentkb/trafilatura"
	"github.com/joho/godotenv"
	"google.golang.org/genai"
)

func main() {
	ctx := context.Background()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path. Set before calling Run().
	DBPath string

	// DataDir holds per-session artifacts, records, and knowledge bases.
	DataDir string

	// SQLite database used by the session ledger.
	DB *sqlite.DB

	// Guard is the SSRF check applied to every crawled URL. Tests running
	// against httptest servers can set AllowPrivate.
	Guard *crawl.Guard

	// Completer overrides the env-selected LLM backend. Used by tests.
	Completer agentkb.Completer
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath:  defaultDBPath(),
		DataDir: defaultDataDir(),
		Guard:   &crawl.Guard{},
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// Local overrides for API keys and limits. Missing file is fine.
	_ = godotenv.Load()

	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		Config: agentkb.DefaultConfig(),
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("kbagent"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'kbagent --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd = strings.Fields(kongCtx.Command())[0]

	m.DB = sqlite.NewDB(m.DBPath)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set KBAGENT_DB to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
	}
	defer m.Close()

	logger := newLogger(stderr, cli.Verbose)

	deps.Ledger = sqlite.NewLedgerService(m.DB)
	deps.Artifacts = fs.NewArtifactStore(m.DataDir)
	deps.Records = fs.NewRecordStore(m.DataDir)
	deps.Knowledge = fs.NewKnowledgeStore(m.DataDir)
	deps.Parser = trafilatura.NewDocumentParser()

	// Crawl commands get the fetch stack; LLM commands get a completer.
	// Wiring only what the command needs keeps failures local: a missing
	// API key does not break "crawl" or "sessions".
	switch cmd {
	case "crawl", "run":
		fetcher := kbhttp.NewFetcher(
			kbhttp.WithTimeout(deps.Config.FetchTimeout),
			kbhttp.WithMaxBodySize(deps.Config.MaxFetchSize),
			kbhttp.WithTransport(m.Guard.NewSafeTransport()),
			kbhttp.WithRedirectPolicy(m.Guard.CheckRedirect),
		)
		deps.Fetcher = kbslog.NewLoggingFetcher(fetcher, logger)

		// Sitemap locations come from robots.txt and index files the
		// crawled site controls, so discovery runs behind the same guard
		// as page fetches.
		sitemapClient := &http.Client{
			Timeout:       deps.Config.FetchTimeout,
			Transport:     m.Guard.NewSafeTransport(),
			CheckRedirect: m.Guard.CheckRedirect,
		}
		sitemaps := kbhttp.NewSitemapService(sitemapClient, kbhttp.WithURLCheck(m.Guard.Check))
		deps.Sitemaps = kbslog.NewLoggingSitemapService(sitemaps, logger)
		deps.Guard = m.Guard
	}

	switch cmd {
	case "extract", "synthesize", "run":
		completer := m.Completer
		if completer == nil {
			completer, err = newCompleter(ctx, stderr)
			if err != nil {
				return err
			}
		}
		deps.Completer = kbslog.NewLoggingCompleter(completer, logger)
	}

	return kongCtx.Run(deps)
}

// newCompleter selects the LLM backend from the environment. OpenAI wins
// when both keys are set.
func newCompleter(ctx context.Context, stderr io.Writer) (agentkb.Completer, error) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		var opts []openai.Option
		if model := os.Getenv("OPENAI_MODEL"); model != "" {
			opts = append(opts, openai.WithModel(model))
		}
		if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
			opts = append(opts, openai.WithBaseURL(baseURL))
		}
		return openai.NewCompleter(apiKey, opts...), nil
	}

	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Check your GEMINI_API_KEY is valid")
			return nil, fmt.Errorf("failed to connect to Gemini API: %w", err)
		}
		return gemini.NewCompleter(client, os.Getenv("GEMINI_MODEL")), nil
	}

	fmt.Fprintln(stderr, "Set OPENAI_API_KEY or GEMINI_API_KEY to enable extraction and synthesis")
	return nil, fmt.Errorf("no LLM API key configured")
}

// newLogger writes structured logs to stderr. Without --verbose only
// warnings and errors surface.
func newLogger(stderr io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
}

func defaultDBPath() string {
	if path := os.Getenv("KBAGENT_DB"); path != "" {
		return path
	}
	return filepath.Join(defaultHomeDir(), "kbagent.db")
}

func defaultDataDir() string {
	if path := os.Getenv("KBAGENT_DATA"); path != "" {
		return path
	}
	return filepath.Join(defaultHomeDir(), "sessions")
}

func defaultHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kbagent"
	}
	dir := filepath.Join(home, ".kbagent")
	_ = os.MkdirAll(dir, 0755)
	return dir
}

// newCrawler assembles the crawl pipeline from the bound dependencies.
func newCrawler(deps *Dependencies, concurrency int, rps float64) *crawl.Crawler {
	c := &crawl.Crawler{
		Fetcher:     deps.Fetcher,
		Extractor:   trafilatura.NewExtractor(),
		Converter:   htmltomarkdown.NewConverter(),
		Links:       goquery.NewLinkExtractor(),
		Artifacts:   deps.Artifacts,
		Sitemaps:    deps.Sitemaps,
		Guard:       deps.Guard,
		Ledger:      deps.Ledger,
		Concurrency: concurrency,
	}
	if rps > 0 {
		c.Limiter = crawl.NewDomainLimiter(rps)
	}
	return c
}

// newExtractor assembles the Stage-1 extraction pipeline.
func newExtractor(deps *Dependencies, concurrency int) *extract.Extractor {
	return &extract.Extractor{
		Completer:   deps.Completer,
		Records:     deps.Records,
		Ledger:      deps.Ledger,
		ChunkBudget: deps.Config.ChunkBudget,
		Concurrency: concurrency,
	}
}

// newSynthesizer assembles the Stage-2 synthesis pipeline.
func newSynthesizer(deps *Dependencies) *synth.Synthesizer {
	return &synth.Synthesizer{
		Completer:   deps.Completer,
		ChunkBudget: deps.Config.ChunkBudget,
	}
}
