package sheetsync

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Client reads and writes sheet ranges through a SheetAPI, retrying
// transient failures with exponential backoff.
type Client struct {
	api    SheetAPI
	config ClientConfig
	logger *slog.Logger

	// sleep waits between retries; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client for the given backend. A nil config uses DefaultClientConfig.
func NewClient(api SheetAPI, config *ClientConfig, logger *slog.Logger) *Client {
	if config == nil {
		config = DefaultClientConfig()
	}

	cfg := *config
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 1 * time.Second
	}
	if cfg.MaxRetryInterval <= 0 {
		cfg.MaxRetryInterval = 32 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		api:    api,
		config: cfg,
		logger: logger,
		sleep:  sleepContext,
	}
}

// ReadRange reads the data range of loc. The first row becomes the headers.
func (c *Client) ReadRange(ctx context.Context, loc Location) (*SheetGrid, error) {
	rangeA1 := loc.Range()

	var values [][]string
	err := c.withRetry(ctx, "read "+rangeA1, func() error {
		var err error
		values, err = c.api.Get(ctx, loc.SpreadsheetID, rangeA1)
		return err
	})
	if err != nil {
		return nil, err
	}

	grid := &SheetGrid{Headers: []string{}, Rows: [][]string{}}
	if len(values) > 0 {
		grid.Headers = values[0]
		grid.Rows = values[1:]
	}

	c.logger.Debug("read sheet range",
		slog.String("range", rangeA1),
		slog.Int("headers", len(grid.Headers)),
		slog.Int("rows", len(grid.Rows)))

	return grid, nil
}

// WriteRange writes rows into a single range.
func (c *Client) WriteRange(ctx context.Context, loc Location, addr RangeAddress, rows [][]string) error {
	if err := addr.Validate(); err != nil {
		return err
	}

	rangeA1 := addr.String()
	return c.withRetry(ctx, "write "+rangeA1, func() error {
		return c.api.Update(ctx, loc.SpreadsheetID, rangeA1, rows)
	})
}

// WriteBatch writes data[i] into ranges[i] for every i in one remote call.
// The request is rejected before contacting the backend when the lengths differ
// or a range is invalid.
func (c *Client) WriteBatch(ctx context.Context, loc Location, ranges []RangeAddress, data [][][]string) error {
	if len(ranges) != len(data) {
		return fmt.Errorf("%w: %d ranges, %d data blocks", ErrBatchMismatch, len(ranges), len(data))
	}
	if len(ranges) == 0 {
		return nil
	}

	batches := make([]Batch, len(ranges))
	for i, addr := range ranges {
		if err := addr.Validate(); err != nil {
			return err
		}
		batches[i] = Batch{Range: addr, Values: data[i]}
	}

	return c.writeBatches(ctx, loc, batches)
}

// writeBatches sends prepared batches as one BatchUpdate request.
func (c *Client) writeBatches(ctx context.Context, loc Location, batches []Batch) error {
	payload := make([]ValueRange, len(batches))
	rows := 0
	for i, b := range batches {
		payload[i] = ValueRange{Range: b.Range.String(), Values: b.Values}
		rows += len(b.Values)
	}

	c.logger.Debug("writing batch",
		slog.Int("ranges", len(payload)),
		slog.Int("rows", rows),
		slog.String("first_range", payload[0].Range))

	return c.withRetry(ctx, fmt.Sprintf("batch write of %d ranges", len(payload)), func() error {
		return c.api.BatchUpdate(ctx, loc.SpreadsheetID, payload)
	})
}

// withRetry runs fn, retrying transient failures with exponential backoff.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for i := 0; i <= c.config.MaxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return fmt.Errorf("%s: %w", op, err)
		}

		if i < c.config.MaxRetries {
			backoff := c.backoff(i)
			c.logger.Warn("transient remote error, retrying",
				slog.String("op", op),
				slog.Int("attempt", i+1),
				slog.Duration("backoff", backoff),
				slog.String("error", err.Error()))

			if serr := c.sleep(ctx, backoff); serr != nil {
				return fmt.Errorf("%s: %w", op, serr)
			}
		}
	}

	return fmt.Errorf("%s failed after %d retries: %w", op, c.config.MaxRetries, err)
}

// backoff returns the wait before retry number attempt (0-based).
func (c *Client) backoff(attempt int) time.Duration {
	d := c.config.RetryInterval * time.Duration(1<<uint(attempt))
	if d > c.config.MaxRetryInterval || d <= 0 {
		d = c.config.MaxRetryInterval
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
