// Package estimate runs the two-stage estimation pipeline over an
// uploaded requirement document and the active scope config.
//
// The stages mirror how an estimator reads a requirements doc:
//   - Analyze: extract product/feature pairs from the document text
//   - Estimate: size each pair against the scope configuration and
//     attach development hours
//
// # Providers
//
// Both stages run through a Provider. Remote providers (gemini, openai)
// prompt a model and parse its JSON reply; the heuristic provider works
// entirely offline with regex extraction and rule-based sizing. The
// factory degrades a remote provider to heuristic when no API key is
// configured, so a fresh install estimates something rather than
// failing every project.
//
// # Usage
//
// Build a provider from config, then run the pipeline:
//
//	provider, err := estimate.New(cfg.Estimator, logger)
//	if err != nil {
//	    return err
//	}
//	svc := estimate.NewService(provider, logger)
//	rows, err := svc.Run(ctx, documentPath, scopePath)
//
// Run returns one row per product/feature pair. Errors carry an
// "analysis stage:" or "estimation stage:" prefix naming the stage that
// failed; that prefix ends up in the project's stored error message.
package estimate
