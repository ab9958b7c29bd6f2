package usage

import (
	"context"

	"github.com/j-veylop/dify-backup-tui/internal/console"
	"github.com/j-veylop/dify-backup-tui/internal/logger"
	"github.com/j-veylop/dify-backup-tui/internal/models"
)

// Outcome is the tagged result of one probe.
type Outcome int

const (
	// OutcomeSuccess means the endpoint returned a recognizable envelope.
	OutcomeSuccess Outcome = iota
	// OutcomeNotFound means the endpoint answered 404.
	OutcomeNotFound
	// OutcomeOtherError covers every other failure, including unrecognized envelopes.
	OutcomeOtherError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not-found"
	default:
		return "error"
	}
}

// probeOrder is the priority in which variants are tried.
var probeOrder = []models.Variant{
	models.VariantConversation,
	models.VariantCompletion,
	models.VariantWorkflowLog,
}

// inference resolves the variant when no probe succeeded: if every variant in notFound
// answered 404, the application is of variant result.
type inference struct {
	notFound []models.Variant
	result   models.Variant
}

// Apps with neither chat nor completion endpoints are workflow apps.
var inferences = []inference{
	{notFound: []models.Variant{models.VariantConversation, models.VariantCompletion}, result: models.VariantWorkflowLog},
	{notFound: []models.Variant{models.VariantCompletion, models.VariantWorkflowLog}, result: models.VariantConversation},
}

// fallbackVariant is used when nothing else decides; chat apps are the common case.
const fallbackVariant = models.VariantConversation

// Probe is one classifier attempt.
type Probe struct {
	Variant models.Variant
	Outcome Outcome
	Err     error
}

// Classifier infers an application's usage variant by probing each endpoint.
type Classifier struct {
	fetcher PageFetcher
}

// NewClassifier creates a classifier.
func NewClassifier(fetcher PageFetcher) *Classifier {
	return &Classifier{fetcher: fetcher}
}

// Classify probes the endpoints in priority order and returns the first that answers.
// When none do, the 404 pattern decides, then the fallback.
func (c *Classifier) Classify(ctx context.Context, appID string) models.Variant {
	variant, probes := c.classify(ctx, appID)
	logger.Debug("classified application", "app", appID, "variant", variant.String(), "probes", len(probes))
	return variant
}

func (c *Classifier) classify(ctx context.Context, appID string) (models.Variant, []Probe) {
	probes := make([]Probe, 0, len(probeOrder))
	for _, variant := range probeOrder {
		p := c.probe(ctx, appID, variant)
		probes = append(probes, p)
		if p.Outcome == OutcomeSuccess {
			return variant, probes
		}
	}
	return resolve(probes), probes
}

func (c *Classifier) probe(ctx context.Context, appID string, variant models.Variant) Probe {
	_, err := c.fetcher.FetchPage(ctx, PageRequest{
		AppID:    appID,
		Variant:  variant,
		Page:     1,
		PageSize: 1,
	})
	switch {
	case err == nil:
		return Probe{Variant: variant, Outcome: OutcomeSuccess}
	case console.IsNotFound(err):
		return Probe{Variant: variant, Outcome: OutcomeNotFound, Err: err}
	default:
		return Probe{Variant: variant, Outcome: OutcomeOtherError, Err: err}
	}
}

// resolve folds failed probes through the inference rules.
func resolve(probes []Probe) models.Variant {
	outcomes := make(map[models.Variant]Outcome, len(probes))
	for _, p := range probes {
		outcomes[p.Variant] = p.Outcome
	}

	for _, rule := range inferences {
		matched := true
		for _, v := range rule.notFound {
			if o, ok := outcomes[v]; !ok || o != OutcomeNotFound {
				matched = false
				break
			}
		}
		if matched {
			return rule.result
		}
	}
	return fallbackVariant
}
