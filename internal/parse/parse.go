// Package parse pulls structured fields out of extracted document text.
package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	cbuRe        = regexp.MustCompile(`(?i)CBU[:\s]+([\d-]+)`)
	cuitRe       = regexp.MustCompile(`(?i)CUIT[:\s]+([\d-]+)`)
	referenciaRe = regexp.MustCompile(`(?i)Referencia[:\s]+([^\n]+)`)
	operacionRe  = regexp.MustCompile(`(?i)Operaci[oó]n[:\s]+([^\n]+)`)
	fechaRe      = regexp.MustCompile(`(?i)Fecha[:\s]+([\d/]+)`)
	importeRe    = regexp.MustCompile(`(?i)Importe[^\d]*([\d.,]+)`)

	institucionRe = regexp.MustCompile(`(?i)Instituci[oó]n[:\s]+([^\n]+)`)
	periodoRe     = regexp.MustCompile(`(?i)Per[ií]odo[:\s]+([^\n]+)`)
	totalRe       = regexp.MustCompile(`(?i)Total[^\d]*([\d.,]+)`)
	itemRe        = regexp.MustCompile(`(\d+)\s+([^\n]+?)\s+([\d.,]+)\s+([\d.,]+)\s+([\d.,]+)`)

	numberPrefixRe = regexp.MustCompile(`^\d*\.?\d*`)
)

const (
	// DefaultInstitution is used when a list names no institution.
	DefaultInstitution = "Desconocida"
	// DefaultConcept is the concept recorded for every contribution list.
	DefaultConcept = "Aporte sindical"
)

var dateLayouts = []string{"02/01/2006", "2/1/2006", "02/01/06", "2/1/06"}

// BankReceipt holds the fields of a bank transfer receipt.
type BankReceipt struct {
	BeneficiaryCUIT *string
	CBU             *string
	Fecha           *time.Time
	NroOperacion    *string
	NroReferencia   *string
	Importe         float64
}

// ContributionItem is one row of a contribution list.
type ContributionItem struct {
	Legajo       string
	FullNameRaw  string
	Remunerativo *float64
	AporteMonto  float64
}

// ContributionList holds the header and rows of a contribution list.
type ContributionList struct {
	InstitutionName string
	InstitutionCUIT *string
	Period          *string
	Concept         string
	Total           float64
	Items           []ContributionItem
}

// Comprobante parses a bank transfer receipt. Missing fields stay nil and
// the amount defaults to zero.
func Comprobante(text string) BankReceipt {
	r := BankReceipt{
		BeneficiaryCUIT: firstGroup(cuitRe, text),
		CBU:             firstGroup(cbuRe, text),
		NroOperacion:    firstGroup(operacionRe, text),
		NroReferencia:   firstGroup(referenciaRe, text),
	}
	if raw := firstGroup(fechaRe, text); raw != nil {
		r.Fecha = ParseDate(*raw)
	}
	if raw := firstGroup(importeRe, text); raw != nil {
		if v, ok := CleanNumber(*raw); ok {
			r.Importe = v
		}
	}
	return r
}

// Listado parses a contribution list.
func Listado(text string) ContributionList {
	l := ContributionList{
		InstitutionName: DefaultInstitution,
		InstitutionCUIT: firstGroup(cuitRe, text),
		Period:          firstGroup(periodoRe, text),
		Concept:         DefaultConcept,
		Items:           []ContributionItem{},
	}
	if name := firstGroup(institucionRe, text); name != nil {
		l.InstitutionName = *name
	}
	if raw := firstGroup(totalRe, text); raw != nil {
		if v, ok := CleanNumber(*raw); ok {
			l.Total = v
		}
	}
	for _, m := range itemRe.FindAllStringSubmatch(text, -1) {
		item := ContributionItem{
			Legajo:      m[1],
			FullNameRaw: strings.TrimSpace(m[2]),
		}
		if v, ok := CleanNumber(m[3]); ok {
			item.Remunerativo = &v
		}
		if v, ok := CleanNumber(m[4]); ok {
			item.AporteMonto = v
		}
		l.Items = append(l.Items, item)
	}
	return l
}

// CleanNumber reads an Argentine formatted amount: everything but digits and
// commas is dropped, the first comma becomes the decimal point and the longest
// numeric prefix is parsed.
func CleanNumber(raw string) (float64, bool) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == ',' {
			b.WriteRune(r)
		}
	}
	s := strings.Replace(b.String(), ",", ".", 1)
	prefix := numberPrefixRe.FindString(s)
	if prefix == "" || prefix == "." {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(prefix, "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseDate reads a dd/mm/yyyy date. It returns nil when raw is not a date.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func firstGroup(re *regexp.Regexp, text string) *string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v := strings.TrimSpace(m[1])
	if v == "" {
		return nil
	}
	return &v
}
