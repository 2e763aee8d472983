package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/pizzeria-backend/pkg/config"
)

func TestMissingFieldsAddsNullableColumns(t *testing.T) {
	existing := bigquery.Schema{
		{Name: "event_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "Total", Type: bigquery.NumericFieldType, Required: true},
	}
	desired := bigquery.Schema{
		{Name: "event_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "total", Type: bigquery.NumericFieldType, Required: true},
		{Name: "pizza_count", Type: bigquery.IntegerFieldType, Required: true},
	}

	missing := missingFields(existing, desired)
	if len(missing) != 1 || missing[0].Name != "pizza_count" {
		t.Fatalf("expected only pizza_count, got %+v", missing)
	}
	if missing[0].Required {
		t.Fatal("added columns must be nullable")
	}
	if !desired[2].Required {
		t.Fatal("desired schema must not be mutated")
	}
	if got := missingFields(desired, desired); len(got) != 0 {
		t.Fatalf("expected nothing missing, got %+v", got)
	}
}

func TestCreateMetadataPartitionsByDay(t *testing.T) {
	schema := bigquery.Schema{{Name: "created_at", Type: bigquery.TimestampFieldType}}
	meta := createMetadata(TableSpec{Name: "order_facts", Schema: schema, PartitionField: "created_at"})
	if meta.TimePartitioning == nil || meta.TimePartitioning.Field != "created_at" || meta.TimePartitioning.Type != bigquery.DayPartitioningType {
		t.Fatalf("unexpected partitioning %+v", meta.TimePartitioning)
	}
	if meta := createMetadata(TableSpec{Name: "x", Schema: schema}); meta.TimePartitioning != nil {
		t.Fatal("no partition field means no partitioning")
	}
}

func TestClientOptionsPrioritizesJSON(t *testing.T) {
	gcp := config.GCPConfig{
		CredentialsJSON:        `{"dummy": "value"}`,
		ApplicationCredentials: "/tmp/creds",
	}

	opts := clientOptions(gcp)
	if len(opts) != 1 {
		t.Fatalf("expected 1 option, got %d", len(opts))
	}
}

func TestClientOptionsEmpty(t *testing.T) {
	if opts := clientOptions(config.GCPConfig{}); len(opts) != 0 {
		t.Fatalf("expected 0 options when no credentials provided, got %d", len(opts))
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, config.BigQueryConfig{Dataset: "pizzeria", OrderFactsTable: "order_facts"}, nil); !errors.Is(err, errProjectIDRequired) {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{OrderFactsTable: "order_facts"}, nil); !errors.Is(err, errDatasetRequired) {
		t.Fatalf("expected dataset error, got %v", err)
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{Dataset: "pizzeria"}, nil); !errors.Is(err, errTableNameRequired) {
		t.Fatalf("expected table error, got %v", err)
	}
}

func TestNilClientGuards(t *testing.T) {
	var c *Client
	if err := c.InsertRows(context.Background(), "order_facts", []any{1}); !errors.Is(err, errClientNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("nil close should be a no-op: %v", err)
	}
	if err := c.EnsureTable(context.Background(), TableSpec{Name: "order_facts"}); !errors.Is(err, errClientNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if c.OrderFactsTable() != "" {
		t.Fatal("nil client has no table")
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusNotFound})) {
		t.Fatal("expected wrapped 404 to be not found")
	}
	if isNotFound(&googleapi.Error{Code: http.StatusForbidden}) {
		t.Fatal("403 is not a not-found")
	}
}
