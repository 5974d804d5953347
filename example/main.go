package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/ideamans/go-sheetsync"
	"github.com/ideamans/go-sheetsync/adapters/excel"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Local workbook standing in for a Google spreadsheet
	adapter, err := excel.New(&excel.Config{FilePath: "./contacts.xlsx"})
	if err != nil {
		return fmt.Errorf("failed to create adapter: %w", err)
	}
	client := sheetsync.NewClient(adapter, excel.DefaultClientConfig(), logger)

	store := sheetsync.NewMemoryStore("guid", []string{"guid", "name", "email"},
		sheetsync.NewRecord(map[string]interface{}{
			"guid":  "7f0c9a5e-1b7e-4b8e-9d1a-0d2f4c6b8a10",
			"name":  "John Doe",
			"email": "john@example.com",
		}),
	)

	target := sheetsync.Target{
		Name: "contacts",
		Location: sheetsync.Location{
			SheetName: "Contacts",
			DataRange: "A1:F",
		},
		IdentityField: "guid",
		Columns: map[string]string{
			"name":  "Name",
			"email": "Email",
		},
	}

	syncer, err := sheetsync.New(client, target, store, &sheetsync.Options{
		Logger: logger,
		Hooks: sheetsync.Hooks{
			CleanField: func(field, raw string) (interface{}, error) {
				if field == "email" {
					return strings.ToLower(strings.TrimSpace(raw)), nil
				}
				return raw, nil
			},
			// rows typed into the sheet without a name are left alone
			ShouldUpsertRow: func(values map[string]interface{}) bool {
				name, _ := values["name"].(string)
				return name != ""
			},
		},
		Listeners: []sheetsync.RowListener{
			func(ctx context.Context, event sheetsync.RowEvent) {
				if event.Created {
					fmt.Printf("new contact from row %d: %s\n", event.Row, event.Record.GetAsString("name", ""))
				}
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create syncer: %w", err)
	}

	results, err := sheetsync.NewRunner(logger, syncer).Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to sync: %w", err)
	}

	for _, r := range results {
		fmt.Printf("%s: %d rows pulled, %d records pushed (%d appended)\n",
			r.Target, r.Pull.Rows, r.Push.Records, r.Push.Appended)
	}
	fmt.Printf("store now holds %d contacts\n", store.Len())
	return nil
}
