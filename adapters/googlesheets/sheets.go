package googlesheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/ideamans/go-sheetsync"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsAdaptor implements sheetsync.SheetAPI for Google Sheets
type SheetsAdaptor struct {
	config Config
	opts   []option.ClientOption

	mu      sync.Mutex
	service *sheets.Service
	err     error
}

var _ sheetsync.SheetAPI = (*SheetsAdaptor)(nil)

// NewSheetsAdaptor creates a new Google Sheets adaptor with provided options.
// No credentials are resolved and no connection is made until the first request.
func NewSheetsAdaptor(config Config, opts ...option.ClientOption) *SheetsAdaptor {
	if config.ValueInputOption == "" {
		config.ValueInputOption = InputUserEntered
	}
	return &SheetsAdaptor{
		config: config,
		opts:   opts,
	}
}

// sheetsService resolves credentials and builds the API service once. A failure
// is remembered, so a broken credential source is consulted only once. Failures
// of a canceled or expired request are not remembered.
func (a *SheetsAdaptor) sheetsService(ctx context.Context) (*sheets.Service, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.service != nil || a.err != nil {
		return a.service, a.err
	}

	opts := append([]option.ClientOption(nil), a.opts...)
	if a.config.Credentials != nil {
		ts, err := a.config.Credentials.TokenSource(ctx)
		if err != nil {
			// the request gave up, the credential source may be fine
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("failed to resolve credentials: %w", err)
			}
			a.err = fmt.Errorf("%w: %w", sheetsync.ErrUnauthenticated, err)
			return nil, a.err
		}
		opts = append(opts, option.WithTokenSource(ts))
	}

	// the service outlives the request that happened to create it
	service, err := sheets.NewService(context.WithoutCancel(ctx), opts...)
	if err != nil {
		a.err = fmt.Errorf("failed to create sheets service: %w", err)
		return nil, a.err
	}

	a.service = service
	return a.service, nil
}

// Get reads the formatted cell values of a range
func (a *SheetsAdaptor) Get(ctx context.Context, spreadsheetID, rangeA1 string) ([][]string, error) {
	service, err := a.sheetsService(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := service.Spreadsheets.Values.Get(spreadsheetID, rangeA1).Context(ctx).Do()
	if err != nil {
		return nil, classifyError(fmt.Errorf("failed to get sheet data: %w", err))
	}

	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			rows[i][j] = convertCellValue(v)
		}
	}
	return rows, nil
}

// Update writes values into a single range
func (a *SheetsAdaptor) Update(ctx context.Context, spreadsheetID, rangeA1 string, values [][]string) error {
	service, err := a.sheetsService(ctx)
	if err != nil {
		return err
	}

	vr := &sheets.ValueRange{
		Range:  rangeA1,
		Values: toSheetValues(values),
	}
	_, err = service.Spreadsheets.Values.Update(spreadsheetID, rangeA1, vr).
		ValueInputOption(a.config.ValueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		return classifyError(fmt.Errorf("failed to update sheet: %w", err))
	}

	return nil
}

// BatchUpdate writes every range in a single values:batchUpdate request
func (a *SheetsAdaptor) BatchUpdate(ctx context.Context, spreadsheetID string, data []sheetsync.ValueRange) error {
	service, err := a.sheetsService(ctx)
	if err != nil {
		return err
	}

	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: a.config.ValueInputOption,
		Data:             make([]*sheets.ValueRange, len(data)),
	}
	for i, d := range data {
		req.Data[i] = &sheets.ValueRange{
			Range:  d.Range,
			Values: toSheetValues(d.Values),
		}
	}

	_, err = service.Spreadsheets.Values.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return classifyError(fmt.Errorf("failed to batch update %d ranges: %w", len(data), err))
	}

	return nil
}

// classifyError maps API and transport failures onto the sheetsync sentinels
// so the client knows which ones to retry.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	// token refresh failures surface inside *url.Error, so check them first
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("%w: %w", sheetsync.ErrUnauthenticated, err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusUnauthorized:
			return fmt.Errorf("%w: %w", sheetsync.ErrUnauthenticated, err)
		case gerr.Code == http.StatusTooManyRequests, gerr.Code >= 500:
			return fmt.Errorf("%w: %w", sheetsync.ErrTransientRemote, err)
		default:
			return fmt.Errorf("%w: %w", sheetsync.ErrPermanentRemote, err)
		}
	}

	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%w: %w", sheetsync.ErrTransientRemote, err)
	}

	return err
}

// convertCellValue converts a Google Sheets cell value to its text
func convertCellValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("%v", val)
	}
}

func toSheetValues(values [][]string) [][]interface{} {
	out := make([][]interface{}, len(values))
	for i, row := range values {
		out[i] = make([]interface{}, len(row))
		for j, cell := range row {
			out[i][j] = cell
		}
	}
	return out
}
