// Package cli implements the billing command line client.
//
// Every command talks to a billing server through pkg/client. The session
// comes from --user/--token or BILLING_USER_ID/BILLING_TOKEN, the server from
// --server or BILLING_SERVER_URL.
//
//	billing plans
//	billing subscription set pro
//	billing subscription update --auto-renew=false
//	billing quota -o json
//	billing invoices --status paid --limit 20
//	billing invoices export -f invoices.xlsx
//	billing change-plan starter
//	billing cancel-plan --yes
//
// change-plan and cancel-plan go through the client billing cache: the
// change is staged, confirmed on stdin (or with --yes), and the plan printed
// afterwards is the one the server returned.
package cli
