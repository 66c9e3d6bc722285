// Package staydex provides an embeddable Go client for the staydex
// vacation-rental search index, backed by Redis or Valkey for the index and
// PostgreSQL as the source of truth.
//
// # Search
//
//	client, _ := staydex.New(ctx, staydex.WithValkey("localhost:6379", ""))
//	defer client.Close()
//
//	page, _ := client.Search().Units(ctx, staydex.SearchRequest{
//	    City:     "Sana'a",
//	    Guests:   2,
//	    CheckIn:  "2024-06-01",
//	    CheckOut: "2024-06-04",
//	})
//	fmt.Println(page.Strategy.Level, len(page.Items))
//
// # Indexing
//
// Lifecycle hooks and maintenance need the source database:
//
//	client, _ := staydex.New(ctx,
//	    staydex.WithRedis("localhost:6379", ""),
//	    staydex.WithPostgres("postgres://localhost/catalog"),
//	)
//	_, _ = client.Index().UnitUpdated(ctx, "u1")
//	report, _ := client.Index().RebuildAll(ctx, 200)
package staydex
