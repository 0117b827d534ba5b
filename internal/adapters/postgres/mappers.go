package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/psd2hub/xs2a-engine/internal/core/domain"
)

func toPaymentModel(p *domain.Payment) (*paymentModel, error) {
	debtor, err := json.Marshal(p.DebtorAccount)
	if err != nil {
		return nil, fmt.Errorf("marshal debtor account: %w", err)
	}
	creditor, err := json.Marshal(p.CreditorAccount)
	if err != nil {
		return nil, fmt.Errorf("marshal creditor account: %w", err)
	}
	amount, err := json.Marshal(p.Amount)
	if err != nil {
		return nil, fmt.Errorf("marshal amount: %w", err)
	}
	psu, err := json.Marshal(p.Psu)
	if err != nil {
		return nil, fmt.Errorf("marshal psu: %w", err)
	}
	tpp, err := json.Marshal(p.Tpp)
	if err != nil {
		return nil, fmt.Errorf("marshal tpp: %w", err)
	}
	return &paymentModel{
		ID:                            p.ID,
		ExternalID:                    p.ExternalID,
		Product:                       p.Product,
		Type:                          string(p.Type),
		DebtorAccount:                 debtor,
		CreditorAccount:               creditor,
		CreditorName:                  p.CreditorName,
		Amount:                        amount,
		RequestedExecutionDate:        p.RequestedExecutionDate,
		RawData:                       p.RawData,
		Status:                        string(p.Status),
		Psu:                           psu,
		Tpp:                           tpp,
		MultilevelSca:                 p.MultilevelSca,
		CancellationInitiated:         p.CancellationInitiated,
		CancelledFinalised:            p.CancelledFinalised,
		CancellationRedirectURI:       p.CancellationRedirectURI,
		CancellationInternalRequestID: p.CancellationInternalRequestID,
		CreatedAt:                     p.CreatedAt,
		UpdatedAt:                     p.UpdatedAt,
	}, nil
}

func toPayment(m *paymentModel) (*domain.Payment, error) {
	p := &domain.Payment{
		ID:                            m.ID,
		ExternalID:                    m.ExternalID,
		Product:                       m.Product,
		Type:                          domain.PaymentType(m.Type),
		CreditorName:                  m.CreditorName,
		RequestedExecutionDate:        m.RequestedExecutionDate,
		RawData:                       m.RawData,
		Status:                        domain.TransactionStatus(m.Status),
		MultilevelSca:                 m.MultilevelSca,
		CancellationInitiated:         m.CancellationInitiated,
		CancelledFinalised:            m.CancelledFinalised,
		CancellationRedirectURI:       m.CancellationRedirectURI,
		CancellationInternalRequestID: m.CancellationInternalRequestID,
		CreatedAt:                     m.CreatedAt,
		UpdatedAt:                     m.UpdatedAt,
	}
	if err := json.Unmarshal(m.DebtorAccount, &p.DebtorAccount); err != nil {
		return nil, fmt.Errorf("unmarshal debtor account: %w", err)
	}
	if err := json.Unmarshal(m.CreditorAccount, &p.CreditorAccount); err != nil {
		return nil, fmt.Errorf("unmarshal creditor account: %w", err)
	}
	if err := json.Unmarshal(m.Amount, &p.Amount); err != nil {
		return nil, fmt.Errorf("unmarshal amount: %w", err)
	}
	if err := json.Unmarshal(m.Psu, &p.Psu); err != nil {
		return nil, fmt.Errorf("unmarshal psu: %w", err)
	}
	if err := json.Unmarshal(m.Tpp, &p.Tpp); err != nil {
		return nil, fmt.Errorf("unmarshal tpp: %w", err)
	}
	return p, nil
}

func toConsentModel(c *domain.Consent) (*consentModel, error) {
	access, err := json.Marshal(c.Access)
	if err != nil {
		return nil, fmt.Errorf("marshal access: %w", err)
	}
	psus, err := json.Marshal(c.Psus)
	if err != nil {
		return nil, fmt.Errorf("marshal psus: %w", err)
	}
	tpp, err := json.Marshal(c.Tpp)
	if err != nil {
		return nil, fmt.Errorf("marshal tpp: %w", err)
	}
	return &consentModel{
		ID:               c.ID,
		ExternalID:       c.ExternalID,
		Type:             string(c.Type),
		Access:           access,
		ValidUntil:       c.ValidUntil,
		Recurring:        c.Recurring,
		FrequencyPerDay:  c.FrequencyPerDay,
		Status:           string(c.Status),
		MultilevelSca:    c.MultilevelSca,
		Psus:             psus,
		Tpp:              tpp,
		DecisionNotified: c.DecisionNotified,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}, nil
}

func toConsent(m *consentModel) (*domain.Consent, error) {
	c := &domain.Consent{
		ID:               m.ID,
		ExternalID:       m.ExternalID,
		Type:             domain.ConsentType(m.Type),
		ValidUntil:       m.ValidUntil,
		Recurring:        m.Recurring,
		FrequencyPerDay:  m.FrequencyPerDay,
		Status:           domain.ConsentStatus(m.Status),
		MultilevelSca:    m.MultilevelSca,
		DecisionNotified: m.DecisionNotified,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	if err := json.Unmarshal(m.Access, &c.Access); err != nil {
		return nil, fmt.Errorf("unmarshal access: %w", err)
	}
	if err := json.Unmarshal(m.Psus, &c.Psus); err != nil {
		return nil, fmt.Errorf("unmarshal psus: %w", err)
	}
	if err := json.Unmarshal(m.Tpp, &c.Tpp); err != nil {
		return nil, fmt.Errorf("unmarshal tpp: %w", err)
	}
	return c, nil
}

func toAuthorisationModel(a *domain.Authorisation) (*authorisationModel, error) {
	psu, err := json.Marshal(a.Psu)
	if err != nil {
		return nil, fmt.Errorf("marshal psu: %w", err)
	}
	methods, err := json.Marshal(a.AvailableMethods)
	if err != nil {
		return nil, fmt.Errorf("marshal available methods: %w", err)
	}
	return &authorisationModel{
		ID:                a.ID,
		ParentID:          a.ParentID,
		ParentKind:        string(a.ParentKind),
		Psu:               psu,
		Approach:          string(a.Approach),
		Status:            string(a.Status),
		AvailableMethods:  methods,
		ChosenMethodID:    a.ChosenMethodID,
		ConfirmationCode:  a.ConfirmationCode,
		RedirectURI:       a.RedirectURI,
		InternalRequestID: a.InternalRequestID,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}, nil
}

func toAuthorisation(m *authorisationModel) (*domain.Authorisation, error) {
	a := &domain.Authorisation{
		ID:                m.ID,
		ParentID:          m.ParentID,
		ParentKind:        domain.AuthorisationParent(m.ParentKind),
		Approach:          domain.ScaApproach(m.Approach),
		Status:            domain.ScaStatus(m.Status),
		ChosenMethodID:    m.ChosenMethodID,
		ConfirmationCode:  m.ConfirmationCode,
		RedirectURI:       m.RedirectURI,
		InternalRequestID: m.InternalRequestID,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	if err := json.Unmarshal(m.Psu, &a.Psu); err != nil {
		return nil, fmt.Errorf("unmarshal psu: %w", err)
	}
	if err := json.Unmarshal(m.AvailableMethods, &a.AvailableMethods); err != nil {
		return nil, fmt.Errorf("unmarshal available methods: %w", err)
	}
	return a, nil
}
