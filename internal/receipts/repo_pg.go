package receipts

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"docuflow/internal/shared/storage/db"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) SaveTransfer(ctx context.Context, t BankTransfer) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM bank_transfers WHERE document_id = $1`, t.DocumentID); err != nil {
			return err
		}
		const query = `
INSERT INTO bank_transfers (
    id, document_id, beneficiary_name, beneficiary_cuit, cbu, fecha,
    nro_operacion, nro_referencia, importe, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
		_, err := tx.ExecContext(ctx, query,
			t.ID, t.DocumentID, t.BeneficiaryName, t.BeneficiaryCUIT, t.CBU, t.Fecha,
			t.NroOperacion, t.NroReferencia, t.Importe, t.CreatedAt,
		)
		return err
	})
}

func (r *PGRepo) SaveBatch(ctx context.Context, b ContributionBatch) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM contribution_batches WHERE document_id = $1`, b.DocumentID); err != nil {
			return err
		}
		const batchQuery = `
INSERT INTO contribution_batches (
    id, document_id, institution_name, institution_cuit, period, concept,
    personas_count, total_aportes_periodo, reconciliation_status, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
		_, err := tx.ExecContext(ctx, batchQuery,
			b.ID, b.DocumentID, b.InstitutionName, b.InstitutionCUIT, b.Period, b.Concept,
			b.PersonasCount, b.TotalAportesPeriodo, string(b.ReconciliationStatus), b.CreatedAt, b.UpdatedAt,
		)
		if err != nil {
			return err
		}
		const itemQuery = `
INSERT INTO contribution_items (id, batch_id, position, full_name_raw, legajos_count, remunerativo, aporte_monto)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
		for _, it := range b.Items {
			if _, err := tx.ExecContext(ctx, itemQuery,
				it.ID, b.ID, it.Position, it.FullNameRaw, it.LegajosCount, it.Remunerativo, it.AporteMonto,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PGRepo) GetTransferByDocument(ctx context.Context, documentID string) (BankTransfer, error) {
	const query = `
SELECT id, document_id, beneficiary_name, beneficiary_cuit, cbu, fecha,
       nro_operacion, nro_referencia, importe, created_at
FROM bank_transfers
WHERE document_id = $1`
	var t BankTransfer
	var name, cuit, cbu, operacion, referencia sql.NullString
	var fecha sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, documentID).Scan(
		&t.ID, &t.DocumentID, &name, &cuit, &cbu, &fecha,
		&operacion, &referencia, &t.Importe, &t.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) || db.IsInvalidTextRepresentation(err) {
		return BankTransfer{}, ErrNotFound
	}
	if err != nil {
		return BankTransfer{}, err
	}
	t.BeneficiaryName = nullString(name)
	t.BeneficiaryCUIT = nullString(cuit)
	t.CBU = nullString(cbu)
	t.NroOperacion = nullString(operacion)
	t.NroReferencia = nullString(referencia)
	if fecha.Valid {
		t.Fecha = &fecha.Time
	}
	return t, nil
}

func (r *PGRepo) GetBatchByDocument(ctx context.Context, documentID string) (ContributionBatch, error) {
	const query = `
SELECT id, document_id, institution_name, institution_cuit, period, concept,
       personas_count, total_aportes_periodo, reconciliation_status, created_at, updated_at
FROM contribution_batches
WHERE document_id = $1`
	var b ContributionBatch
	var cuit, period sql.NullString
	var status string
	err := r.DB.QueryRowContext(ctx, query, documentID).Scan(
		&b.ID, &b.DocumentID, &b.InstitutionName, &cuit, &period, &b.Concept,
		&b.PersonasCount, &b.TotalAportesPeriodo, &status, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) || db.IsInvalidTextRepresentation(err) {
		return ContributionBatch{}, ErrNotFound
	}
	if err != nil {
		return ContributionBatch{}, err
	}
	b.InstitutionCUIT = nullString(cuit)
	b.Period = nullString(period)
	b.ReconciliationStatus = ReconciliationStatus(status)

	rows, err := r.DB.QueryContext(ctx, `
SELECT id, batch_id, position, full_name_raw, legajos_count, remunerativo, aporte_monto
FROM contribution_items
WHERE batch_id = $1
ORDER BY position ASC`, b.ID)
	if err != nil {
		return ContributionBatch{}, err
	}
	defer rows.Close()

	b.Items = []ContributionItem{}
	for rows.Next() {
		var it ContributionItem
		var remunerativo sql.NullFloat64
		if err := rows.Scan(&it.ID, &it.BatchID, &it.Position, &it.FullNameRaw, &it.LegajosCount, &remunerativo, &it.AporteMonto); err != nil {
			return ContributionBatch{}, err
		}
		if remunerativo.Valid {
			v := remunerativo.Float64
			it.Remunerativo = &v
		}
		b.Items = append(b.Items, it)
	}
	return b, rows.Err()
}

func (r *PGRepo) UpdateReconciliation(ctx context.Context, batchID string, status ReconciliationStatus, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE contribution_batches SET reconciliation_status = $2, updated_at = $3 WHERE id = $1`,
		batchID, string(status), at,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

var _ Repo = (*PGRepo)(nil)
