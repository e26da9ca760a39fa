package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"

	"docuflow/internal/jobs"
	"docuflow/internal/receipts"
)

// reconcileTolerance is the largest item-sum vs total difference still
// considered reconciled.
const reconcileTolerance = 0.01

// Report is the VALIDATION stage result.
type Report struct {
	IsValid  bool     `json:"isValid"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
	Type     string   `json:"type"`
}

func newReport(kind string) Report {
	return Report{Warnings: []string{}, Errors: []string{}, Type: kind}
}

func (r *Report) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Report) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) finish() Report {
	r.IsValid = len(r.Errors) == 0
	return *r
}

func (s *Stages) validateBankReceipt(ctx context.Context, documentID string) (Report, error) {
	report := newReport(jobs.KindBankReceipt)
	t, err := s.Receipts.Transfer(ctx, documentID)
	if errors.Is(err, receipts.ErrNotFound) {
		report.fail("no bank transfer parsed for document")
		return report.finish(), nil
	}
	if err != nil {
		return Report{}, err
	}
	return CheckTransfer(t), nil
}

// CheckTransfer applies the bank receipt rules: a positive amount is
// required; CBU, date and CUIT problems are warnings.
func CheckTransfer(t receipts.BankTransfer) Report {
	report := newReport(jobs.KindBankReceipt)
	if t.Importe <= 0 {
		report.fail("importe must be greater than zero")
	}
	if t.CBU == nil || len(digits(*t.CBU)) != 22 {
		report.warn("cbu should have 22 digits")
	}
	if t.Fecha == nil {
		report.warn("fecha is missing")
	}
	if t.BeneficiaryCUIT == nil || len(digits(*t.BeneficiaryCUIT)) != 11 {
		report.warn("cuit should have 11 digits")
	}
	return report.finish()
}

func (s *Stages) validateContributionList(ctx context.Context, documentID string) (Report, error) {
	report := newReport(jobs.KindContribList)
	b, err := s.Receipts.Batch(ctx, documentID)
	if errors.Is(err, receipts.ErrNotFound) {
		report.fail("no contribution batch parsed for document")
		return report.finish(), nil
	}
	if err != nil {
		return Report{}, err
	}
	report, status := CheckBatch(b)
	if err := s.Receipts.SetReconciliation(ctx, b.ID, status); err != nil {
		return Report{}, fmt.Errorf("store reconciliation: %w", err)
	}
	return report, nil
}

// CheckBatch applies the contribution list rules and returns the
// reconciliation status of the batch.
func CheckBatch(b receipts.ContributionBatch) (Report, receipts.ReconciliationStatus) {
	report := newReport(jobs.KindContribList)
	if len(b.Items) == 0 {
		report.warn("contribution list has no items")
	}
	sum := b.ItemsTotal()
	status := receipts.StatusConciliado
	if math.Abs(sum-b.TotalAportesPeriodo) > reconcileTolerance {
		status = receipts.StatusDiferencia
		report.warn("items total %.2f differs from declared total %.2f", sum, b.TotalAportesPeriodo)
	}
	return report.finish(), status
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
