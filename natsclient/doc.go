// Package natsclient wraps a NATS connection with lifecycle management
// for the detector pipeline.
//
// The Client tracks connection status through server callbacks, exposes a
// JetStream context for stream and consumer provisioning, and publishes
// results with deduplication message IDs so broker-side duplicate windows
// can suppress redelivered publishes.
//
// Typical usage:
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//		natsclient.WithName("detector"),
//		natsclient.WithMetrics(registry.CoreMetrics()),
//	)
//	if err != nil {
//		return err
//	}
//	if err := client.Connect(ctx); err != nil {
//		return err
//	}
//	defer client.Close(context.Background())
package natsclient
