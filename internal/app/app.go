package app

import (
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/aescanero/dago-pathway-router/content"
	"github.com/aescanero/dago-pathway-router/internal/condition"
	"github.com/aescanero/dago-pathway-router/internal/engine"
	"github.com/aescanero/dago-pathway-router/internal/eval/cel"
	"github.com/aescanero/dago-pathway-router/internal/eval/template"
	"github.com/aescanero/dago-pathway-router/internal/pathway"
	"github.com/aescanero/dago-pathway-router/internal/router"
	"github.com/aescanero/dago-pathway-router/internal/validate"
)

// Options select the content and tune evaluation.
type Options struct {
	// ContentDir is a directory holding manifest.yaml; empty uses the embedded content.
	ContentDir string
	// Content overrides ContentDir when set.
	Content fs.FS

	StepFactor   int
	MaxParallel  int
	CELCacheSize int

	// Strict refuses to start on content validation issues.
	Strict bool

	Observer router.Observer
}

// App is the wired set of components shared by the binaries.
type App struct {
	Store     *pathway.Store
	CEL       *cel.Evaluator
	Engine    *engine.Engine
	Router    *router.Router
	Validator *validate.Validator
	// Report is the content validation report taken at startup.
	Report *validate.Report
}

// Build loads the content, validates it and wires the router.
func Build(opts Options, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		store  *pathway.Store
		err    error
		source = "embedded"
	)
	switch {
	case opts.Content != nil:
		source = "injected"
		store, err = pathway.Load(opts.Content)
	case opts.ContentDir != "":
		source = opts.ContentDir
		store, err = pathway.LoadDir(opts.ContentDir)
	default:
		store, err = pathway.Load(content.FS)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("pathway content loaded",
		zap.String("source", source),
		zap.String("version", store.Manifest().Version),
		zap.Int("pathways", store.Len()),
	)

	cacheSize := opts.CELCacheSize
	if cacheSize <= 0 {
		cacheSize = cel.DefaultCacheSize
	}
	celEval, err := cel.NewEvaluator(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create expression evaluator: %w", err)
	}

	eng := engine.New(store, condition.NewEvaluator(celEval, logger),
		engine.WithStepFactor(opts.StepFactor),
		engine.WithTemplates(template.NewEngine()),
		engine.WithLogger(logger),
	)

	v := validate.New(celEval, eng.Calculators()...)
	report := v.Validate(store)
	if !report.OK() {
		if opts.Strict {
			return nil, report.Err()
		}
		for _, issue := range report.Issues {
			logger.Warn("content validation issue",
				zap.String("pathway_id", issue.PathwayID),
				zap.String("node_id", issue.NodeID),
				zap.String("rule", string(issue.Rule)),
				zap.String("message", issue.Message),
			)
		}
	}

	routerOpts := []router.Option{router.WithMaxParallel(opts.MaxParallel)}
	if opts.Observer != nil {
		routerOpts = append(routerOpts, router.WithObserver(opts.Observer))
	}

	return &App{
		Store:     store,
		CEL:       celEval,
		Engine:    eng,
		Router:    router.NewRouter(store, eng, logger, routerOpts...),
		Validator: v,
		Report:    report,
	}, nil
}
