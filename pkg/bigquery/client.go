package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/angelmondragon/pizzeria-backend/pkg/config"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
)

const metadataCheckTimeout = 10 * time.Second

// Client wraps one BigQuery dataset of the analytics project.
type Client struct {
	client  *bigquery.Client
	dataset *bigquery.Dataset
	cfg     config.BigQueryConfig
	logg    *logger.Logger
}

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errSchemaRequired       = errors.New("bigquery schema is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// TableSpec describes a table the caller writes to. Missing tables are created
// day-partitioned on PartitionField; columns missing from an existing table are
// added as NULLABLE.
type TableSpec struct {
	Name           string
	Schema         bigquery.Schema
	PartitionField string
}

// NewClient creates a BigQuery client and verifies the configured dataset exists.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}
	if strings.TrimSpace(cfg.OrderFactsTable) == "" {
		return nil, errTableNameRequired
	}

	bqClient, err := bigquery.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}

	client := &Client{
		client:  bqClient,
		dataset: bqClient.Dataset(datasetID),
		cfg:     cfg,
		logg:    logg,
	}
	if err := client.checkDataset(ctx); err != nil {
		_ = bqClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "dataset", datasetID), "bigquery client initialized")
	}
	return client, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}
	return opts
}

func (c *Client) checkDataset(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataCheckTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("dataset %q does not exist", c.dataset.DatasetID)
		}
		return fmt.Errorf("checking dataset %q: %w", c.dataset.DatasetID, err)
	}
	return nil
}

// EnsureTable creates the table when it is missing and adds the schema columns
// the live table lacks. Existing columns are never altered.
func (c *Client) EnsureTable(ctx context.Context, ts TableSpec) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	name := strings.TrimSpace(ts.Name)
	if name == "" {
		return errTableNameRequired
	}
	if len(ts.Schema) == 0 {
		return errSchemaRequired
	}

	ctx, cancel := context.WithTimeout(ctx, metadataCheckTimeout)
	defer cancel()

	table := c.dataset.Table(name)
	meta, err := table.Metadata(ctx)
	switch {
	case isNotFound(err):
		if err := table.Create(ctx, createMetadata(ts)); err != nil {
			return fmt.Errorf("creating table %q: %w", name, err)
		}
		c.logInfo(ctx, name, "bigquery table created")
		return nil
	case err != nil:
		return fmt.Errorf("checking table %q: %w", name, err)
	}

	missing := missingFields(meta.Schema, ts.Schema)
	if len(missing) == 0 {
		return nil
	}
	update := bigquery.TableMetadataToUpdate{Schema: append(meta.Schema, missing...)}
	if _, err := table.Update(ctx, update, meta.ETag); err != nil {
		return fmt.Errorf("adding %d columns to %q: %w", len(missing), name, err)
	}
	c.logInfo(ctx, name, fmt.Sprintf("bigquery table schema extended by %d columns", len(missing)))
	return nil
}

func createMetadata(ts TableSpec) *bigquery.TableMetadata {
	meta := &bigquery.TableMetadata{Schema: ts.Schema}
	if field := strings.TrimSpace(ts.PartitionField); field != "" {
		meta.TimePartitioning = &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: field,
		}
	}
	return meta
}

// missingFields returns copies of the top-level fields of desired absent from
// existing. BigQuery only accepts new columns as NULLABLE.
func missingFields(existing, desired bigquery.Schema) bigquery.Schema {
	have := make(map[string]struct{}, len(existing))
	for _, f := range existing {
		have[strings.ToLower(f.Name)] = struct{}{}
	}
	var out bigquery.Schema
	for _, f := range desired {
		if _, ok := have[strings.ToLower(f.Name)]; ok {
			continue
		}
		added := *f
		added.Required = false
		out = append(out, &added)
	}
	return out
}

// OrderFactsTable returns the configured order facts table name.
func (c *Client) OrderFactsTable() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.cfg.OrderFactsTable)
}

// InsertRows streams rows into the given table. Rows implementing bigquery.ValueSaver
// carry their own insert ids so retried inserts are deduplicated.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.client == nil {
		return errClientNotInitialized
	}
	if strings.TrimSpace(table) == "" {
		return errTableNameRequired
	}
	if len(rows) == 0 {
		return nil
	}
	return c.dataset.Table(strings.TrimSpace(table)).Inserter().Put(ctx, rows)
}

// Close releases the BigQuery client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) logInfo(ctx context.Context, table, msg string) {
	if c.logg == nil {
		return
	}
	c.logg.Info(c.logg.WithField(ctx, "table", table), msg)
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr.Code == http.StatusNotFound
	}
	return false
}
