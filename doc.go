// Package flagship is the Go client SDK for the Flagship experimentation
// platform: it decides which experiment variation applies to a visitor,
// resolves feature flag values, and reliably reports exposure and
// analytics events back to the collection service, even under intermittent
// connectivity.
//
// A Client owns the shared pieces every visitor session reads: the global
// status, the decision source (server-resolved API mode or client-resolved
// bucketing mode) and the tracking manager with its hit queues. Visitors
// are cheap session objects created per end user.
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	client, err := flagship.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := client.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer client.Stop()
//
//	v := client.NewVisitor("visitor-1", visitor.WithContext(map[string]any{
//		"plan": "gold",
//	}))
//	if _, err := v.FetchFlags(ctx).Await(); err != nil {
//		log.Print(err)
//	}
//	color := visitor.FlagValue(v, "color", "blue")
//	v.SendExposure("color")
//
// Persistence is pluggable through the cache contracts in pkg/cache; the
// default keeps everything in memory.
package flagship
