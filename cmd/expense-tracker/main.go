package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/expense-tracker/internal/expense"
	"github.com/zombor/expense-tracker/internal/parsing"
	"github.com/zombor/expense-tracker/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// extractorConfig selects and configures the OCR backend
type extractorConfig struct {
	scanner       string
	geminiKey     string
	geminiModel   string
	ollamaURL     string
	ollamaModel   string
	openaiKey     string
	openaiModel   string
	openaiURL     string
	tesseractPath string
	tesseractLang string
}

func newExtractor(cfg extractorConfig) (scanning.TextExtractor, error) {
	switch cfg.scanner {
	case "gemini":
		apiKey := cfg.geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("gemini API key is required: set --gemini-key or GEMINI_API_KEY")
		}
		slog.Info("Initializing Gemini extractor...", "model", cfg.geminiModel)
		return scanning.NewGemini(apiKey, cfg.geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama extractor...", "url", cfg.ollamaURL, "model", cfg.ollamaModel)
		return scanning.NewOllama(cfg.ollamaURL, cfg.ollamaModel)
	case "openai":
		apiKey := cfg.openaiKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("openai API key is required: set --openai-key or OPENAI_API_KEY")
		}
		slog.Info("Initializing OpenAI extractor...", "model", cfg.openaiModel)
		return scanning.NewOpenAI(apiKey, cfg.openaiModel, cfg.openaiURL)
	case "tesseract":
		slog.Info("Initializing Tesseract extractor...", "path", cfg.tesseractPath, "lang", cfg.tesseractLang)
		return scanning.NewTesseract(cfg.tesseractPath, cfg.tesseractLang)
	default:
		return nil, fmt.Errorf("invalid scanner type %q: valid types are gemini, ollama, openai, tesseract", cfg.scanner)
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run returns the process exit code so deferred cleanup runs before exit
func run(args []string, stdout io.Writer) int {
	// Check for version flag before parsing other flags
	for _, arg := range args {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Fprintln(stdout, version)
			return 0
		}
	}

	fs := ff.NewFlagSet("expense-tracker")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dbPath        = fs.StringLong("db", "expense-tracker.db", "Database file path")
		storagePath   = fs.StringLong("storage", "./receipts", "Receipt image directory")
		scannerType   = fs.StringLong("scanner", "gemini", "Text extractor: gemini, ollama, openai or tesseract")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llama3.2-vision", "Ollama vision model name (e.g., llama3.2-vision, qwen2.5vl, llava:13b)")
		openaiKey     = fs.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		openaiModel   = fs.StringLong("openai-model", "gpt-4o-mini", "OpenAI vision model name")
		openaiURL     = fs.StringLong("openai-url", "", "OpenAI compatible API base URL (optional)")
		tesseractPath = fs.StringLong("tesseract-path", "tesseract", "Path to the tesseract binary")
		tesseractLang = fs.StringLong("tesseract-lang", "eng", "Tesseract language(s), e.g. eng or eng+deu")
		ocrTimeout    = fs.DurationLong("ocr-timeout", scanning.DefaultTimeout, "Maximum time to read one receipt")
		dateOrder     = fs.StringLong("date-order", "month-first", "How to read ambiguous dates like 03/04/2024: month-first or day-first")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, args,
		ff.WithEnvVarPrefix("EXPENSE_TRACKER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if *showVersion {
		fmt.Fprintln(stdout, version)
		return 0
	}

	order, ok := parsing.ParseDateOrder(*dateOrder)
	if !ok {
		slog.Error("Invalid date order", "value", *dateOrder, "valid", "month-first or day-first")
		return 1
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := expense.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		return 1
	}
	defer db.Close()

	extractor, err := newExtractor(extractorConfig{
		scanner:       *scannerType,
		geminiKey:     *geminiKey,
		geminiModel:   *geminiModel,
		ollamaURL:     *ollamaURL,
		ollamaModel:   *ollamaModel,
		openaiKey:     *openaiKey,
		openaiModel:   *openaiModel,
		openaiURL:     *openaiURL,
		tesseractPath: *tesseractPath,
		tesseractLang: *tesseractLang,
	})
	if err != nil {
		slog.Error("Failed to initialize text extractor", "scanner", *scannerType, "error", err)
		return 1
	}
	coordinator := scanning.NewCoordinator(extractor, *ocrTimeout)
	defer coordinator.Close()

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := expense.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		return 1
	}

	parser := parsing.NewParser(parsing.WithDateOrder(order))
	expenseService := expense.NewService(db, coordinator, parser, store)

	basicAuth := expense.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := expense.NewServer(expenseService, basicAuth)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Server started",
		"address", fmt.Sprintf("http://localhost%s", addr),
		"scanner", *scannerType,
		"date_order", order.String(),
		"ocr_timeout", ocrTimeout.Round(time.Second),
	)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	if err := server.Start(ctx, addr); err != nil {
		slog.Error("Server error", "error", err)
		return 1
	}
	slog.Info("Shut down")
	return 0
}
