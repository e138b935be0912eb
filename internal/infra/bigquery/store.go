// Package bigquery implements the Record Store on BigQuery. Writes go through
// DML so rows can be updated and deleted right after they are inserted.
package bigquery

import (
	"context"
	"fmt"
	"math/big"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/financr/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	incomeTable  = "income_records"
	expenseTable = "expenses"
	reportsTable = "tax_reports"

	// numericScale is the scale of the BigQuery NUMERIC type.
	numericScale = 9
)

// Store implements store.Store on a shared BigQuery client.
type Store struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewStore creates a Store with its own client for projectID.
func NewStore(ctx context.Context, projectID, datasetID string) (*Store, error) {
	if projectID == "" || datasetID == "" {
		return nil, fmt.Errorf("NewStore: project and dataset are required")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewStore: creating client: %w", err)
	}
	return NewStoreWithClient(client, projectID, datasetID), nil
}

// NewStoreWithClient creates a Store on an existing client.
func NewStoreWithClient(client *bigquery.Client, projectID, datasetID string) *Store {
	return &Store{client: client, projectID: projectID, datasetID: datasetID}
}

// Close closes the BigQuery client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *Store) table(name string) string {
	return tableRef(s.projectID, s.datasetID, name)
}

func tableRef(projectID, datasetID, name string) string {
	return fmt.Sprintf("`%s.%s.%s`", projectID, datasetID, name)
}

// runDML runs a DML statement and returns the number of affected rows.
func (s *Store) runDML(ctx context.Context, sql string, params []bigquery.QueryParameter) (int64, error) {
	q := s.client.Query(sql)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}

	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return qs.NumDMLAffectedRows, nil
		}
	}
	return 0, nil
}

// read runs a query and returns its row iterator.
func (s *Store) read(ctx context.Context, sql string, params []bigquery.QueryParameter) (*bigquery.RowIterator, error) {
	q := s.client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query read: %w", err)
	}
	return it, nil
}

// toRat converts an amount to a NUMERIC parameter value.
func toRat(d decimal.Decimal) *big.Rat {
	return d.Rat()
}

// fromRat converts a NUMERIC column value. A NULL column reads as zero.
func fromRat(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(r.FloatString(numericScale))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// dateBounds appends range conditions on col for the set bounds of r.
func dateBounds(col string, r domain.DateRange) (string, []bigquery.QueryParameter) {
	var where string
	var params []bigquery.QueryParameter
	if !r.From.IsZero() {
		where += fmt.Sprintf(" AND %s >= @from_date", col)
		params = append(params, bigquery.QueryParameter{Name: "from_date", Value: r.From})
	}
	if !r.To.IsZero() {
		where += fmt.Sprintf(" AND %s <= @to_date", col)
		params = append(params, bigquery.QueryParameter{Name: "to_date", Value: r.To})
	}
	return where, params
}

// dropParam removes the named parameter; BigQuery rejects parameters a
// statement does not reference.
func dropParam(params []bigquery.QueryParameter, name string) []bigquery.QueryParameter {
	out := params[:0:0]
	for _, p := range params {
		if p.Name != name {
			out = append(out, p)
		}
	}
	return out
}
