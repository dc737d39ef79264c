// Package flow coordinates the four-step linking journey: list
// institutions, create a consent agreement, wait for the out-of-band
// bank authentication, fetch the linked account data.
package flow

import (
	"context"

	"github.com/banklink/go-bank-link/aggregator"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// resultsPath is where the aggregator sends the user back after bank
// authentication.
const resultsPath = "/results"

// AggregatorAPI is the slice of the aggregator client the orchestrator
// calls.
type AggregatorAPI interface {
	Institutions(ctx context.Context, token, country string) ([]aggregator.Institution, error)
	CreateRequisition(ctx context.Context, token, institutionID, redirect, reference string) (aggregator.Agreement, error)
	Requisition(ctx context.Context, token, requisitionID string) (aggregator.Requisition, error)
	AccountBundle(ctx context.Context, token, accountID string) (aggregator.AccountBundle, error)
}

// TokenSource hands out a currently valid access token per session.
type TokenSource interface {
	EnsureToken(ctx context.Context, sessionID string) (aggregator.TokenPair, error)
}

type Orchestrator struct {
	tokens  TokenSource
	client  AggregatorAPI
	baseURL string
}

func New(tokens TokenSource, client AggregatorAPI, baseURL string) *Orchestrator {
	return &Orchestrator{
		tokens:  tokens,
		client:  client,
		baseURL: baseURL,
	}
}

// Institutions lists the banks available to link, optionally narrowed
// to one country.
func (o *Orchestrator) Institutions(ctx context.Context, sessionID, country string) ([]aggregator.Institution, error) {
	pair, err := o.tokens.EnsureToken(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "Orchestrator.Institutions EnsureToken")
	}

	institutions, err := o.client.Institutions(ctx, pair.Access, country)
	if err != nil {
		return nil, errors.Wrap(err, "Orchestrator.Institutions")
	}
	return institutions, nil
}

// StartAgreement creates a consent session with the selected bank. The
// reference id is freshly generated per call; the caller stores the
// requisition id in the browser session and redirects the user to the
// consent link.
func (o *Orchestrator) StartAgreement(ctx context.Context, sessionID, institutionID string) (aggregator.Agreement, error) {
	pair, err := o.tokens.EnsureToken(ctx, sessionID)
	if err != nil {
		return aggregator.Agreement{}, errors.Wrap(err, "Orchestrator.StartAgreement EnsureToken")
	}

	reference := uuid.New().String()
	agreement, err := o.client.CreateRequisition(ctx, pair.Access, institutionID, o.baseURL+resultsPath, reference)
	if err != nil {
		return aggregator.Agreement{}, errors.Wrap(err, "Orchestrator.StartAgreement CreateRequisition")
	}

	log.Info().
		Str("institution_id", institutionID).
		Str("requisition_id", agreement.RequisitionID).
		Msg("consent agreement created")

	return agreement, nil
}

// Results assembles one AccountBundle per account linked under the
// requisition. The first failure aborts the whole fetch; no partial
// payload is returned.
func (o *Orchestrator) Results(ctx context.Context, sessionID, requisitionID string) ([]aggregator.AccountBundle, error) {
	pair, err := o.tokens.EnsureToken(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "Orchestrator.Results EnsureToken")
	}

	requisition, err := o.client.Requisition(ctx, pair.Access, requisitionID)
	if err != nil {
		return nil, errors.Wrap(err, "Orchestrator.Results Requisition")
	}

	bundles := make([]aggregator.AccountBundle, 0, len(requisition.Accounts))
	for _, accountID := range requisition.Accounts {
		bundle, err := o.client.AccountBundle(ctx, pair.Access, accountID)
		if err != nil {
			return nil, errors.Wrapf(err, "Orchestrator.Results AccountBundle %s", accountID)
		}
		bundles = append(bundles, bundle)
	}

	return bundles, nil
}
