package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ironsheep/fovea-tools-mcp/internal/config"
	"github.com/ironsheep/fovea-tools-mcp/internal/evaluation"
	"github.com/ironsheep/fovea-tools-mcp/internal/geometry"
	"github.com/ironsheep/fovea-tools-mcp/internal/imaging"
	"github.com/ironsheep/fovea-tools-mcp/internal/predict"
	"github.com/ironsheep/fovea-tools-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("fovea-mcp - fovea localization tools over MCP")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  fovea-mcp [serve] [config.json]            Run the MCP server on stdin/stdout")
	fmt.Println("  fovea-mcp predict <config.json> <image>... Write predicted fovea coordinates as CSV")
	fmt.Println("  fovea-mcp evaluate <config.json> [plot]    Score the configured dataset")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  FOVEA_MCP_LOG_LEVEL=debug    Enable debug logging")
	fmt.Println()
	fmt.Println("The server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			fmt.Printf("fovea-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			usage()
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol and CSV output)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	debug := os.Getenv("FOVEA_MCP_LOG_LEVEL") == "debug"
	if debug {
		log.Printf("Fovea MCP v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch {
	case len(args) == 0:
		err = runServe(ctx, "", debug)
	case args[0] == "serve":
		path := ""
		if len(args) > 1 {
			path = args[1]
		}
		err = runServe(ctx, path, debug)
	case args[0] == "predict":
		if len(args) < 3 {
			usage()
			os.Exit(2)
		}
		err = runPredict(ctx, args[1], args[2:])
	case args[0] == "evaluate":
		if len(args) < 2 {
			usage()
			os.Exit(2)
		}
		plot := ""
		if len(args) > 2 {
			plot = args[2]
		}
		err = runEvaluate(ctx, args[1], plot)
	default:
		// a bare config path starts the server
		err = runServe(ctx, args[0], debug)
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runServe(ctx context.Context, path string, debug bool) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	if debug {
		log.Printf("Geometry: input %s, stride %d, kernel %d, decoder %s",
			cfg.Geometry.InputSize, cfg.Geometry.OutputStride, cfg.Geometry.KernelSize, cfg.Decoder.Strategy)
	}

	server.Version = Version
	srv, err := server.New(cfg)
	if err != nil {
		return err
	}
	defer srv.Close()
	return srv.Serve(ctx, os.Stdin, os.Stdout)
}

func runPredict(ctx context.Context, configPath string, images []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	p, err := cfg.NewPredictor()
	if err != nil {
		return err
	}
	var cascade *predict.Cascade
	if cfg.RefineHalfSize > 0 {
		cascade = &predict.Cascade{Coarse: p, Fine: p, HalfSize: cfg.RefineHalfSize}
	}

	loader := imaging.FileLoader{}
	results := make([]predict.Result, 0, len(images))
	for _, path := range images {
		img, err := loader.Load(path)
		if err != nil {
			return err
		}

		var pt geometry.Point
		if cascade != nil {
			cp, err := cascade.Predict(ctx, img)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			pt = cp.Point
		} else {
			pred, err := p.Predict(ctx, img)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			pt = pred.Point
		}
		results = append(results, predict.Result{ImageName: filepath.Base(path), X: pt.X, Y: pt.Y})
	}
	return predict.WriteCSV(os.Stdout, results)
}

func runEvaluate(ctx context.Context, configPath, plotPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	ds, err := cfg.OpenEvaluationDataset()
	if err != nil {
		return err
	}
	scorer, err := cfg.NewScorer()
	if err != nil {
		return err
	}
	dec, err := cfg.NewDecoder()
	if err != nil {
		return err
	}

	run, err := evaluation.Evaluate(ctx, ds, scorer, dec, cfg.EvaluationOptions(""))
	if err != nil {
		return err
	}

	if cfg.Database != "" {
		store, err := evaluation.OpenStore(cfg.Database)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveRun(ctx, run); err != nil {
			return err
		}
		log.Printf("Stored run %s in %s", run.ID, cfg.Database)
	}
	if plotPath != "" {
		if err := evaluation.PlotErrors(run, plotPath); err != nil {
			return err
		}
	}

	fmt.Printf("run:              %s\n", run.ID)
	fmt.Printf("decoder:          %s\n", run.Decoder)
	fmt.Printf("images:           %d (%d skipped)\n", len(run.Samples), len(run.Skipped))
	fmt.Printf("precision:        %.4f cells\n", run.Precision)
	fmt.Printf("mean pixel error: %.2f px\n", run.MeanPixelError)
	return nil
}
