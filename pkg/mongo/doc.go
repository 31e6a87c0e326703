// Package mongo provides the MongoDB-backed implementations of the engine's
// storage interfaces: identities, plan catalog and assignments, usage
// windows, and decision records. The core only ever sees the abstract store
// interfaces; this package is the durable deployment option behind them.
//
// New connects with retry and pooling configured through the env-tagged
// Config. Each store wraps one collection:
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, "gatekit")
//	identities := mongo.NewIdentityStore(db)
//	plans := mongo.NewPlanStore(db)
//	windows := mongo.NewUsageStore(db)
//	decisions := mongo.NewAuditStorage(db)
package mongo
