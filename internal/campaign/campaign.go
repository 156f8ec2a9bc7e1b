// Package campaign renders and dispatches a templated email campaign,
// recording every attempt in the email audit log.
package campaign

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/farmaleads/leads-cli/internal/lead"
	"github.com/farmaleads/leads-cli/internal/mailer"
	"github.com/farmaleads/leads-cli/internal/store"
	"github.com/farmaleads/leads-cli/internal/template"
)

// Params describe one campaign run. Empty Subject or Body fall back to
// the default template.
type Params struct {
	Subject        string  `json:"asunto"`
	Body           string  `json:"cuerpo"`
	Remitente      string  `json:"remitente"`
	Firma          string  `json:"firma"`
	PropuestaValor string  `json:"propuesta_valor"`
	OnlyPending    bool    `json:"solo_pendientes"`
	LeadIDs        []int64 `json:"lead_ids,omitempty"`
}

// Result summarizes a campaign run.
type Result struct {
	Total  int `json:"total"`
	Sent   int `json:"enviados"`
	Errors int `json:"errores"`
}

// Dispatcher sends a campaign against the lead store.
type Dispatcher struct {
	store  store.Store
	mailer mailer.Mailer
}

// NewDispatcher builds a campaign dispatcher.
func NewDispatcher(st store.Store, m mailer.Mailer) *Dispatcher {
	return &Dispatcher{store: st, mailer: m}
}

// Send dispatches the campaign to every matching lead with an email.
// Each lead's send state and an audit log entry are persisted per attempt;
// a failed persistence write is logged and the run keeps going.
func (d *Dispatcher) Send(ctx context.Context, params Params) (Result, error) {
	targets, err := d.store.CampaignTargets(ctx, params.OnlyPending, params.LeadIDs)
	if err != nil {
		return Result{}, eris.Wrap(err, "campaign: listing targets")
	}

	subjectTpl := params.Subject
	if subjectTpl == "" {
		subjectTpl = template.DefaultSubject
	}

	result := Result{Total: len(targets)}
	for _, target := range targets {
		bindings := contextFor(target, params)
		subject := template.Render(subjectTpl, bindings)
		body := template.Render(params.Body, bindings)

		ok, detail := d.mailer.Send(target.Email, subject, body, params.Remitente)

		state := lead.SendSent
		if ok {
			result.Sent++
		} else {
			state = lead.SendError
			result.Errors++
		}

		if err := d.store.SetSendState(ctx, target.ID, state); err != nil {
			zap.L().Error("campaign: updating send state failed",
				zap.Int64("lead_id", target.ID), zap.Error(err))
		}
		logEntry := &lead.EmailLog{
			LeadID:       target.ID,
			Destinatario: target.Email,
			Asunto:       subject,
			Cuerpo:       body,
			Estado:       state,
			Detalle:      detail,
		}
		if err := d.store.AppendEmailLog(ctx, logEntry); err != nil {
			zap.L().Error("campaign: writing audit log failed",
				zap.Int64("lead_id", target.ID), zap.Error(err))
		}
	}
	return result, nil
}

// contextFor builds the template bindings for one lead. A lead without a
// zona falls back to its postal code, then to a generic phrase, so the
// rendered text always reads naturally.
func contextFor(target lead.Lead, params Params) map[string]string {
	zona := target.Zona
	if zona == "" {
		zona = target.CodigoPostal
	}
	if zona == "" {
		zona = "tu zona"
	}
	return map[string]string{
		"nombre":          target.Nombre,
		"zona":            zona,
		"codigo_postal":   target.CodigoPostal,
		"remitente":       params.Remitente,
		"firma":           params.Firma,
		"propuesta_valor": params.PropuestaValor,
	}
}
