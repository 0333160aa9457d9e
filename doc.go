// Package basalt is the Go SDK for the Basalt backend platform.
//
// A Client bundles every Basalt service behind one authenticated
// transport:
//
//	client, err := basalt.New(basalt.Config{
//		BaseURL: "https://api.example.com",
//		APIKey:  os.Getenv("BASALT_API_KEY"),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
// Database access goes through the fluent query builder, which compiles
// the chain into a query descriptor executed server-side:
//
//	rows, err := client.Table("users").
//		Select("id", "email").
//		Where("status", "active").
//		OrderBy("created_at", "desc").
//		Limit(10).
//		Get(ctx)
//
// The other services (Auth, Storage, Search, Analytics, Cache, Mail,
// Queue, Workflow, AI, Migrate) are thin wrappers over their endpoints
// and are reachable from the same client.
package basalt
