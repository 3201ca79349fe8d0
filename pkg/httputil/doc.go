// Package httputil holds the JSON response helpers, request parsing, struct
// validation and the request-scoped middleware shared by the billing API.
//
// Handlers decode and validate in one step:
//
//	var req billing.CreateInvoiceRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return
//	}
//
// Unexpected failures go through WriteInternalError, which logs the cause with
// the request id and answers {"error":"internal server error"}.
package httputil
