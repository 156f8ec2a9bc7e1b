// Package lead defines the canonical record for a captured pharmacy lead.
package lead

import (
	"strings"
	"time"
)

// Lead is a business entity discovered by any source adapter.
type Lead struct {
	ID           int64     `json:"id" db:"id"`
	Nombre       string    `json:"nombre" db:"nombre"`
	Direccion    string    `json:"direccion" db:"direccion"`
	Zona         string    `json:"zona" db:"zona"`
	CodigoPostal string    `json:"codigo_postal" db:"codigo_postal"`
	Telefono     string    `json:"telefono" db:"telefono"`
	Website      string    `json:"website" db:"website"`
	Email        string    `json:"email" db:"email"`
	Fuente       string    `json:"fuente" db:"fuente"`
	EstadoEnvio  string    `json:"estado_envio" db:"estado_envio"`
	Notas        string    `json:"notas,omitempty" db:"notas"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Known sources.
const (
	SourceGoogleMaps       = "google_maps"
	SourcePaginasAmarillas = "paginas_amarillas"
	SourceOpenStreetMap    = "openstreetmap"
)

// Send states.
const (
	SendPending = "pendiente"
	SendSent    = "enviado"
	SendError   = "error"
)

// Key is the deduplication identity of a lead: trimmed name plus trimmed
// address. Two records with an equal key are the same entity regardless of
// which source produced them.
type Key struct {
	Nombre    string
	Direccion string
}

// IdentityKey computes the dedup key for a lead.
func (l Lead) IdentityKey() Key {
	return Key{
		Nombre:    strings.TrimSpace(l.Nombre),
		Direccion: strings.TrimSpace(l.Direccion),
	}
}

// Viable reports whether the lead carries the minimum signal to be stored.
// A record without a name is noise from the source and is discarded.
func (l Lead) Viable() bool {
	return strings.TrimSpace(l.Nombre) != ""
}

// Normalize trims the identity fields and applies fallback zone and postal
// code when the lead's own values are empty. Candidates coming from source
// adapters often carry only name/address/phone.
func (l *Lead) Normalize(fallbackZona, fallbackCP string) {
	l.Nombre = strings.TrimSpace(l.Nombre)
	l.Direccion = strings.TrimSpace(l.Direccion)
	if l.Zona == "" {
		l.Zona = fallbackZona
	}
	if l.CodigoPostal == "" {
		l.CodigoPostal = fallbackCP
	}
	if l.EstadoEnvio == "" {
		l.EstadoEnvio = SendPending
	}
}

// FillMissing copies website, phone and email from candidate onto existing
// where existing is empty. Non-empty values are never overwritten; no other
// fields are touched. Returns true when anything changed.
func FillMissing(existing *Lead, candidate Lead) bool {
	changed := false
	if existing.Website == "" && candidate.Website != "" {
		existing.Website = candidate.Website
		changed = true
	}
	if existing.Telefono == "" && candidate.Telefono != "" {
		existing.Telefono = candidate.Telefono
		changed = true
	}
	if existing.Email == "" && candidate.Email != "" {
		existing.Email = candidate.Email
		changed = true
	}
	return changed
}

// EmailLog is one append-only delivery attempt record.
type EmailLog struct {
	ID           string    `json:"id" db:"id"`
	LeadID       int64     `json:"lead_id" db:"lead_id"`
	Destinatario string    `json:"destinatario" db:"destinatario"`
	Asunto       string    `json:"asunto" db:"asunto"`
	Cuerpo       string    `json:"cuerpo" db:"cuerpo"`
	Estado       string    `json:"estado" db:"estado"`
	Detalle      string    `json:"detalle,omitempty" db:"detalle"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
