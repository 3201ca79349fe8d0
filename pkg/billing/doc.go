// Package billing provides the plan catalog, per-user subscriptions, the invoice
// ledger and quota snapshots.
//
// # Overview
//
// Every user has at most one subscription. Selecting a plan writes the
// subscription (insert-or-update keyed by user id) and, for paid plans, records
// a paid invoice in the same transaction.
//
// # Plans
//
//	Free:       $0/month      3 projects,   100 tasks
//	Starter:    $9.99/month  10 projects,   500 tasks
//	Pro:        $29.99/month 50 projects,  5000 tasks
//	Enterprise: $99.99/month unlimited projects and tasks
//
// Plan identifiers coming from callers must go through ParsePlan. LookupPlan is
// the lenient catalog lookup used for display; it falls back to free and reports
// whether the id matched.
//
// # Usage Example
//
//	svc := billing.NewSQLService(db, storage.DialectPostgres)
//
//	sub, err := svc.UpsertSubscription(ctx, userID, "pro")
//	if billing.IsValidationError(err) {
//		// unknown plan
//	}
//
//	quota, err := svc.CheckQuota(ctx, userID)
//	fmt.Println(quota.Quotas.MaxProjects, quota.SubscriptionActive)
//
// # Virtual defaults
//
// Reads for users without a stored subscription return a free default tagged
// with SourceVirtualDefault. Virtual defaults are never written back.
//
// # Related Packages
//
//   - pkg/storage: Database connections and migrations
//   - pkg/api: HTTP handlers exposing this service
package billing
