package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/psd2hub/xs2a-engine/internal/core/domain"
	"github.com/psd2hub/xs2a-engine/internal/core/spi"
)

// ApproachHints carries the per-request data influencing approach selection.
type ApproachHints struct {
	// TppRedirectPreferred mirrors the TPP-Redirect-Preferred header; nil
	// when the TPP expressed no preference.
	TppRedirectPreferred *bool
	// DecoupledPreferred is set when the PSU previously chose a decoupled
	// SCA method for this resource.
	DecoupledPreferred bool
}

// ApproachResolver picks the SCA approach governing a flow. It is a pure
// function of the deployment's approach priority list and the request hints,
// so resuming an in-flight authorisation re-selects the same strategy.
type ApproachResolver struct {
	approaches []domain.ScaApproach
}

// NewApproachResolver validates and fixes the configured approach priority
// list. An empty or unknown list is a fatal configuration error.
func NewApproachResolver(configured []string) (*ApproachResolver, error) {
	if len(configured) == 0 {
		return nil, errors.New("no SCA approach configured")
	}
	approaches := make([]domain.ScaApproach, 0, len(configured))
	for _, s := range configured {
		approach, ok := domain.ParseScaApproach(s)
		if !ok {
			return nil, fmt.Errorf("unknown SCA approach %q", s)
		}
		approaches = append(approaches, approach)
	}
	return &ApproachResolver{approaches: approaches}, nil
}

// Resolve picks the approach for a request. A true redirect preference selects
// REDIRECT when configured; a false preference selects the first non-redirect
// approach; no preference selects the first configured approach. A prior
// decoupled method choice pins the flow to DECOUPLED when available.
func (r *ApproachResolver) Resolve(hints ApproachHints) (domain.ScaApproach, *domain.ErrorHolder) {
	if len(r.approaches) == 0 {
		return "", domain.NewErrorHolder(domain.ServicePIS, 500, domain.CodeInternalServerError,
			"no usable SCA approach configured")
	}

	if hints.DecoupledPreferred && r.contains(domain.ApproachDecoupled) {
		return domain.ApproachDecoupled, nil
	}

	if hints.TppRedirectPreferred != nil {
		if *hints.TppRedirectPreferred {
			if r.contains(domain.ApproachRedirect) {
				return domain.ApproachRedirect, nil
			}
		} else {
			for _, a := range r.approaches {
				if a != domain.ApproachRedirect {
					return a, nil
				}
			}
		}
	}
	return r.approaches[0], nil
}

func (r *ApproachResolver) contains(approach domain.ScaApproach) bool {
	for _, a := range r.approaches {
		if a == approach {
			return true
		}
	}
	return false
}

// verifyFunc executes the parent-specific SCA verification (execute payment,
// cancel payment or activate consent).
type verifyFunc func(ctx context.Context, cd spi.ContextData, proof spi.ScaConfirmation, cont spi.ContinuationData) spi.Response[spi.ExecutionPayload]

// scaStrategy supplies the four approach-specific hooks consumed by the
// authorisation state machine.
type scaStrategy interface {
	Approach() domain.ScaApproach

	// StartAuthorisation creates the authorisation resource and may
	// immediately compute a status past RECEIVED.
	StartAuthorisation(parentID uuid.UUID, kind domain.AuthorisationParent, psu domain.PsuData) *domain.Authorisation

	// ListAvailableMethods queries the backend for SCA methods applicable to
	// the PSU. Redirect and pre-authenticated flows return none by contract.
	ListAvailableMethods(ctx context.Context, be spi.AuthorisationBackend, cd spi.ContextData, cont spi.ContinuationData) spi.Response[[]domain.AuthMethod]

	// SelectMethodAndChallenge triggers the backend to issue a challenge or
	// start a decoupled push. No-op for redirect and pre-authenticated flows.
	SelectMethodAndChallenge(ctx context.Context, be spi.AuthorisationBackend, cd spi.ContextData, auth *domain.Authorisation, methodID string, cont spi.ContinuationData) spi.Response[domain.Challenge]

	// Finalise verifies the supplied proof through the parent verification
	// and reports the resulting SCA status plus the confirmation code to
	// store when an explicit confirmation step follows.
	Finalise(ctx context.Context, cd spi.ContextData, auth *domain.Authorisation, proof spi.ScaConfirmation, verify verifyFunc, cont spi.ContinuationData) (domain.ScaStatus, string, *spi.Failure)
}

type embeddedStrategy struct {
	confirmationMandated bool
}

func (s *embeddedStrategy) Approach() domain.ScaApproach { return domain.ApproachEmbedded }

func (s *embeddedStrategy) StartAuthorisation(parentID uuid.UUID, kind domain.AuthorisationParent, psu domain.PsuData) *domain.Authorisation {
	auth := domain.NewAuthorisation(parentID, kind, psu, domain.ApproachEmbedded)
	if !psu.Empty() {
		auth.Status = domain.ScaPsuIdentified
	}
	return auth
}

func (s *embeddedStrategy) ListAvailableMethods(ctx context.Context, be spi.AuthorisationBackend, cd spi.ContextData, cont spi.ContinuationData) spi.Response[[]domain.AuthMethod] {
	return be.RequestAvailableScaMethods(ctx, cd, cont)
}

func (s *embeddedStrategy) SelectMethodAndChallenge(ctx context.Context, be spi.AuthorisationBackend, cd spi.ContextData, auth *domain.Authorisation, methodID string, cont spi.ContinuationData) spi.Response[domain.Challenge] {
	return be.RequestAuthorisationCode(ctx, cd, methodID, cont)
}

func (s *embeddedStrategy) Finalise(ctx context.Context, cd spi.ContextData, auth *domain.Authorisation, proof spi.ScaConfirmation, verify verifyFunc, cont spi.ContinuationData) (domain.ScaStatus, string, *spi.Failure) {
	resp := verify(ctx, cd, proof, cont)
	if resp.HasError() {
		return auth.Status, "", resp.Failure
	}
	if s.confirmationMandated {
		return domain.ScaStarted, resp.Payload.ConfirmationCode, nil
	}
	return domain.ScaFinalised, "", nil
}

type decoupledStrategy struct {
	confirmationMandated bool
}

func (s *decoupledStrategy) Approach() domain.ScaApproach { return domain.ApproachDecoupled }

func (s *decoupledStrategy) StartAuthorisation(parentID uuid.UUID, kind domain.AuthorisationParent, psu domain.PsuData) *domain.Authorisation {
	auth := domain.NewAuthorisation(parentID, kind, psu, domain.ApproachDecoupled)
	if !psu.Empty() {
		auth.Status = domain.ScaPsuIdentified
	}
	return auth
}

func (s *decoupledStrategy) ListAvailableMethods(ctx context.Context, be spi.AuthorisationBackend, cd spi.ContextData, cont spi.ContinuationData) spi.Response[[]domain.AuthMethod] {
	return be.RequestAvailableScaMethods(ctx, cd, cont)
}

func (s *decoupledStrategy) SelectMethodAndChallenge(ctx context.Context, be spi.AuthorisationBackend, cd spi.ContextData, auth *domain.Authorisation, methodID string, cont spi.ContinuationData) spi.Response[domain.Challenge] {
	resp := be.StartScaDecoupled(ctx, cd, auth.ID.String(), methodID, cont)
	if resp.HasError() {
		return spi.Fail[domain.Challenge](resp.Failure, resp.Continuation)
	}
	// The push carries no challenge data; the PSU message is surfaced as
	// additional information.
	return spi.Ok(domain.Challenge{AdditionalInfo: resp.Payload}, resp.Continuation)
}

func (s *decoupledStrategy) Finalise(ctx context.Context, cd spi.ContextData, auth *domain.Authorisation, proof spi.ScaConfirmation, verify verifyFunc, cont spi.ContinuationData) (domain.ScaStatus, string, *spi.Failure) {
	resp := verify(ctx, cd, proof, cont)
	if resp.HasError() {
		return auth.Status, "", resp.Failure
	}
	if s.confirmationMandated {
		return domain.ScaStarted, resp.Payload.ConfirmationCode, nil
	}
	return domain.ScaFinalised, "", nil
}

type redirectStrategy struct {
	redirectURLTemplate string
}

func (s *redirectStrategy) Approach() domain.ScaApproach { return domain.ApproachRedirect }

// StartAuthorisation opens the redirect flow directly in STARTED: the PSU
// authenticates at the backend's redirect page and the engine only sees the
// confirmation code afterwards.
func (s *redirectStrategy) StartAuthorisation(parentID uuid.UUID, kind domain.AuthorisationParent, psu domain.PsuData) *domain.Authorisation {
	auth := domain.NewAuthorisation(parentID, kind, psu, domain.ApproachRedirect)
	auth.Status = domain.ScaStarted
	auth.InternalRequestID = uuid.New().String()
	auth.RedirectURI = fmt.Sprintf(s.redirectURLTemplate, auth.ID.String())
	return auth
}

func (s *redirectStrategy) ListAvailableMethods(ctx context.Context, be spi.AuthorisationBackend, cd spi.ContextData, cont spi.ContinuationData) spi.Response[[]domain.AuthMethod] {
	return spi.Ok([]domain.AuthMethod{}, cont)
}

func (s *redirectStrategy) SelectMethodAndChallenge(ctx context.Context, be spi.AuthorisationBackend, cd spi.ContextData, auth *domain.Authorisation, methodID string, cont spi.ContinuationData) spi.Response[domain.Challenge] {
	return spi.Ok(domain.Challenge{}, cont)
}

func (s *redirectStrategy) Finalise(ctx context.Context, cd spi.ContextData, auth *domain.Authorisation, proof spi.ScaConfirmation, verify verifyFunc, cont spi.ContinuationData) (domain.ScaStatus, string, *spi.Failure) {
	// SCA happens at the redirect page; the engine only accepts the
	// confirmation code, which is handled by the STARTED stage.
	return auth.Status, "", spi.NewFailure(spi.LogicalFailure, domain.CodeScaInvalid,
		"redirect authorisations are finalised by confirmation code only")
}

type preAuthenticatedStrategy struct{}

func (s *preAuthenticatedStrategy) Approach() domain.ScaApproach {
	return domain.ApproachPreAuthenticated
}

// StartAuthorisation skips identification and authentication: the PSU already
// holds a valid OAuth token.
func (s *preAuthenticatedStrategy) StartAuthorisation(parentID uuid.UUID, kind domain.AuthorisationParent, psu domain.PsuData) *domain.Authorisation {
	auth := domain.NewAuthorisation(parentID, kind, psu, domain.ApproachPreAuthenticated)
	auth.Status = domain.ScaPsuAuthenticated
	return auth
}

func (s *preAuthenticatedStrategy) ListAvailableMethods(ctx context.Context, be spi.AuthorisationBackend, cd spi.ContextData, cont spi.ContinuationData) spi.Response[[]domain.AuthMethod] {
	return spi.Ok([]domain.AuthMethod{}, cont)
}

func (s *preAuthenticatedStrategy) SelectMethodAndChallenge(ctx context.Context, be spi.AuthorisationBackend, cd spi.ContextData, auth *domain.Authorisation, methodID string, cont spi.ContinuationData) spi.Response[domain.Challenge] {
	return spi.Ok(domain.Challenge{}, cont)
}

func (s *preAuthenticatedStrategy) Finalise(ctx context.Context, cd spi.ContextData, auth *domain.Authorisation, proof spi.ScaConfirmation, verify verifyFunc, cont spi.ContinuationData) (domain.ScaStatus, string, *spi.Failure) {
	resp := verify(ctx, cd, proof, cont)
	if resp.HasError() {
		return auth.Status, "", resp.Failure
	}
	return domain.ScaFinalised, "", nil
}

// newStrategyRegistry builds the per-approach strategy set.
func newStrategyRegistry(confirmationMandated bool, redirectURLTemplate string) map[domain.ScaApproach]scaStrategy {
	return map[domain.ScaApproach]scaStrategy{
		domain.ApproachEmbedded:         &embeddedStrategy{confirmationMandated: confirmationMandated},
		domain.ApproachDecoupled:        &decoupledStrategy{confirmationMandated: confirmationMandated},
		domain.ApproachRedirect:         &redirectStrategy{redirectURLTemplate: redirectURLTemplate},
		domain.ApproachPreAuthenticated: &preAuthenticatedStrategy{},
	}
}
