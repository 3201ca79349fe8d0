// Package api exposes the billing service over HTTP.
//
// Routes live under /billing and require a bearer token:
//
//	GET    /billing/plans
//	GET    /billing/plans/{plan_id}
//	POST   /billing/subscriptions
//	GET    /billing/subscriptions/{user_id}
//	PATCH  /billing/subscriptions/{user_id}
//	POST   /billing/subscriptions/{user_id}/cancel
//	GET    /billing/quota/{user_id}
//	POST   /billing/invoices
//	GET    /billing/invoices/{user_id}?page=&limit=&status=
//	GET    /billing/invoice/{invoice_id}
//	POST   /billing/invoice/{invoice_id}/pay
//	DELETE /billing/invoice/{invoice_id}
//
// /health, /health/live, /health/ready and /metrics are served without
// authentication.
//
// Errors are JSON objects with an "error" key. A *billing.ValidationError
// becomes a 400 carrying the offending "field", a *billing.NotFoundError a
// 404, and anything else a 500 whose body never includes the cause:
//
//	{"error": "internal server error"}
//
// # Usage
//
//	srv := api.NewServer(api.ServerOptions{
//		Service:       billing.NewSQLService(db, storage.DialectPostgres),
//		Logger:        logger,
//		Authenticator: middleware.NewAuthenticator(verifier, 4096, time.Minute),
//	})
//	http.ListenAndServe(":8080", srv)
package api
