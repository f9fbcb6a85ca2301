package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/phishguard-io/phishguard/pkg/cache"
	"github.com/phishguard-io/phishguard/pkg/config"
	"github.com/phishguard-io/phishguard/pkg/fusion"
	"github.com/phishguard-io/phishguard/pkg/indicators"
	"github.com/phishguard-io/phishguard/pkg/scorer"
	"github.com/phishguard-io/phishguard/pkg/store"
)

const Version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runHTTPServer()
	case "scan-email":
		if len(os.Args) < 3 {
			fmt.Println("Usage: phishguard scan-email <content> [subject] [sender]")
			os.Exit(1)
		}
		in := indicators.EmailInput{Content: os.Args[2]}
		if len(os.Args) > 3 {
			in.Subject = os.Args[3]
		}
		if len(os.Args) > 4 {
			in.SenderEmail = os.Args[4]
		}
		runCLIScan("email", func(svc *fusion.Service) (fusion.Verdict, error) {
			return svc.ClassifyEmail(in)
		})
	case "scan-sms":
		if len(os.Args) < 3 {
			fmt.Println("Usage: phishguard scan-sms <content>")
			os.Exit(1)
		}
		content := strings.Join(os.Args[2:], " ")
		runCLIScan("sms", func(svc *fusion.Service) (fusion.Verdict, error) {
			return svc.ClassifySMS(content)
		})
	case "scan-url":
		if len(os.Args) < 3 {
			fmt.Println("Usage: phishguard scan-url <url>")
			os.Exit(1)
		}
		runCLIScan("url", func(svc *fusion.Service) (fusion.Verdict, error) {
			return svc.ClassifyURL(os.Args[2])
		})
	case "version":
		fmt.Printf("phishguard v%s\n", Version)
		fmt.Println("Phishing triage engine - email, SMS, and URL classification")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("phishguard v%s - phishing triage engine\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  phishguard serve                         Start the HTTP API")
	fmt.Println("  phishguard scan-email <body> [subj] [from]  Classify one email")
	fmt.Println("  phishguard scan-sms <text>               Classify one SMS message")
	fmt.Println("  phishguard scan-url <url>                Classify one URL")
	fmt.Println("  phishguard version                       Show version")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  PHISHGUARD_LISTEN_ADDR    Listen address (default :8080)")
	fmt.Println("  PHISHGUARD_EMAIL_BUNDLE   Email classifier bundle directory")
	fmt.Println("  PHISHGUARD_SMS_BUNDLE     SMS classifier bundle directory")
	fmt.Println("  PHISHGUARD_URL_BUNDLE     URL classifier bundle directory")
	fmt.Println("  PHISHGUARD_REDIS_ADDR     Redis address for the verdict cache (optional)")
	fmt.Println("  PHISHGUARD_POSTGRES_DSN   Postgres DSN for scan history (optional)")
	fmt.Println("  PHISHGUARD_CONFIG         YAML config overlay path (optional)")
}

// buildService loads whichever classifier bundles are available. A bundle
// that fails to load degrades its content type instead of aborting startup;
// readiness is surfaced at /health.
func buildService(cfg *config.Config) *fusion.Service {
	var email, sms fusion.TextScorer
	var url fusion.URLScorer

	if m, err := scorer.LoadTextModel(cfg.EmailBundleDir); err != nil {
		log.Printf("[STARTUP] email classifier unavailable: %v", err)
	} else {
		email = m
		log.Println("[STARTUP] email classifier loaded")
	}
	if m, err := scorer.LoadTextModel(cfg.SMSBundleDir); err != nil {
		log.Printf("[STARTUP] sms classifier unavailable: %v", err)
	} else {
		sms = m
		log.Println("[STARTUP] sms classifier loaded")
	}
	if m, err := scorer.LoadURLModel(cfg.URLBundleDir); err != nil {
		log.Printf("[STARTUP] url classifier unavailable: %v", err)
	} else {
		url = m
		log.Println("[STARTUP] url classifier loaded")
	}

	return fusion.NewService(email, sms, url)
}

// =============================================================================
// HTTP Server Mode
// =============================================================================

// scanResponse wraps a verdict with its persisted scan id.
type scanResponse struct {
	ScanID string `json:"scan_id"`
	fusion.Verdict
}

func runHTTPServer() {
	cfg := config.New()
	cfg.MustValidate()

	svc := buildService(cfg)
	ctx := context.Background()

	verdicts, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
	if err != nil {
		log.Printf("[STARTUP] verdict cache disabled: %v", err)
	} else if verdicts != nil {
		log.Println("[STARTUP] verdict cache connected")
	}

	history, err := store.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Printf("[STARTUP] scan history disabled: %v", err)
	} else if history != nil {
		log.Println("[STARTUP] scan history connected")
	}

	app := fiber.New(fiber.Config{
		AppName:   "phishguard",
		BodyLimit: cfg.MaxBodyBytes,
	})

	app.Get("/health", func(c fiber.Ctx) error {
		classifiers := fiber.Map{
			"email": svc.Ready("email"),
			"sms":   svc.Ready("sms"),
			"url":   svc.Ready("url"),
		}
		status := "ok"
		if !svc.Ready("email") || !svc.Ready("sms") || !svc.Ready("url") {
			status = "degraded"
		}
		return c.JSON(fiber.Map{
			"status":      status,
			"version":     Version,
			"classifiers": classifiers,
		})
	})

	app.Get("/history/:type", func(c fiber.Ctx) error {
		records, err := history.Recent(c.Context(), c.Params("type"), fiber.Query[int](c, "limit"))
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "history query failed"})
		}
		return c.JSON(fiber.Map{"records": records})
	})

	app.Post("/analyze/email", func(c fiber.Ctx) error {
		var req struct {
			Content       string `json:"content"`
			Subject       string `json:"subject"`
			SenderEmail   string `json:"sender_email"`
			SenderDisplay string `json:"sender_display"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		in := indicators.EmailInput{
			Content:       req.Content,
			Subject:       req.Subject,
			SenderEmail:   req.SenderEmail,
			SenderDisplay: req.SenderDisplay,
		}
		key := cache.Key("email", req.Subject+"\x00"+req.SenderEmail+"\x00"+req.Content)
		return respond(c, cfg, verdicts, history, "email", key, func() (fusion.Verdict, error) {
			return svc.ClassifyEmail(in)
		})
	})

	app.Post("/analyze/sms", func(c fiber.Ctx) error {
		var req struct {
			Content string `json:"content"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		key := cache.Key("sms", req.Content)
		return respond(c, cfg, verdicts, history, "sms", key, func() (fusion.Verdict, error) {
			return svc.ClassifySMS(req.Content)
		})
	})

	app.Post("/analyze/url", func(c fiber.Ctx) error {
		var req struct {
			URL string `json:"url"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		key := cache.Key("url", req.URL)
		return respond(c, cfg, verdicts, history, "url", key, func() (fusion.Verdict, error) {
			return svc.ClassifyURL(req.URL)
		})
	})

	log.Printf("[STARTUP] phishguard v%s listening on %s", Version, cfg.ListenAddr)
	if err := app.Listen(cfg.ListenAddr); err != nil {
		log.Fatalf("[STARTUP] FATAL: server failed: %v", err)
	}
}

// respond runs one classification behind the verdict cache and maps the
// error taxonomy to HTTP statuses: validation 400, missing artifact 503,
// scoring failure 500. Error payloads carry zeroed verdict fields so a
// failure can never read as a benign verdict.
func respond(c fiber.Ctx, cfg *config.Config, verdicts *cache.VerdictCache,
	history *store.History, contentType, key string, classify func() (fusion.Verdict, error)) error {

	if v, ok := verdicts.Get(c.Context(), key); ok {
		return c.JSON(scanResponse{ScanID: uuid.NewString(), Verdict: v})
	}

	v, err := classify()
	if err != nil {
		if cfg.LogRequests {
			log.Printf("[API] %s request failed: %v", contentType, err)
		}
		status := 500
		switch fusion.KindOf(err) {
		case fusion.KindValidation:
			status = 400
		case fusion.KindArtifactUnavailable:
			status = 503
		}
		return c.Status(status).JSON(fiber.Map{
			"error":       err.Error(),
			"is_phishing": false,
			"confidence":  0.0,
		})
	}

	verdicts.Put(c.Context(), key, v)
	id := history.Insert(c.Context(), contentType, v)
	if cfg.LogRequests {
		log.Printf("[API] %s verdict: phishing=%v risk=%d rule=%s",
			contentType, v.IsPhishing, v.RiskScore, v.Explanation.AnalysisMethod)
	}
	return c.JSON(scanResponse{ScanID: id.String(), Verdict: v})
}

// =============================================================================
// CLI Scan Mode
// =============================================================================

func runCLIScan(contentType string, classify func(*fusion.Service) (fusion.Verdict, error)) {
	cfg := config.New()
	svc := buildService(cfg)

	v, err := classify(svc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s scan failed: %v\n", contentType, err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
